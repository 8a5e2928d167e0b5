package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"relaycore/controllers"
	"relaycore/routes"
	"relaycore/services"

	"github.com/gin-gonic/gin"
)

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)

	clock := services.SystemClock()
	manager := services.NewSessionKeyManager(clock)
	validator := services.NewPermissionValidator(clock)

	r := gin.New()
	routes.SetupSessionKeyRouter(r, controllers.NewSessionKeyController(manager, validator))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("unmarshal response %q: %v", w.Body.String(), err)
	}
	return w.Code, parsed
}

func TestSessionKeyLifecycleOverHTTP(t *testing.T) {
	r := newTestEngine()

	// 创建
	code, created := doJSON(t, r, http.MethodPost, "/session-keys", map[string]interface{}{
		"durationMs": 60_000,
		"permissions": map[string]interface{}{
			"maxValue":       "100",
			"allowedTargets": []string{"0x00000000000000000000000000000000000000Ab"},
		},
	})
	if code != http.StatusOK {
		t.Fatalf("create returned %d: %v", code, created)
	}
	publicKey, _ := created["publicKey"].(string)
	if publicKey == "" {
		t.Fatal("create response has no publicKey")
	}
	// 响应中绝不携带私钥材料
	for field := range created {
		if strings.Contains(strings.ToLower(field), "private") {
			t.Fatalf("response leaks field %q", field)
		}
	}

	// 列表里能看到
	code, listed := doJSON(t, r, http.MethodGet, "/session-keys", nil)
	if code != http.StatusOK {
		t.Fatalf("list returned %d", code)
	}
	keys, _ := listed["sessionKeys"].([]interface{})
	if len(keys) != 1 {
		t.Fatalf("listed %d keys, want 1", len(keys))
	}

	// 权限内的交易通过校验
	validateBody := map[string]interface{}{
		"publicKey": publicKey,
		"transaction": map[string]interface{}{
			"from":     "0x2222222222222222222222222222222222222222",
			"to":       "0x00000000000000000000000000000000000000Ab",
			"value":    "50",
			"chainId":  1,
			"deadline": 2_000_000_000,
		},
	}
	code, result := doJSON(t, r, http.MethodPost, "/session-keys/validate", validateBody)
	if code != http.StatusOK {
		t.Fatalf("validate returned %d: %v", code, result)
	}
	if valid, _ := result["valid"].(bool); !valid {
		t.Fatalf("expected valid, got %v", result)
	}
	if remaining, _ := result["remainingTime"].(float64); remaining <= 0 {
		t.Errorf("remainingTime = %v, want > 0", result["remainingTime"])
	}

	// 吊销后校验失败
	code, revoked := doJSON(t, r, http.MethodDelete, "/session-keys/"+publicKey, nil)
	if code != http.StatusOK {
		t.Fatalf("revoke returned %d: %v", code, revoked)
	}
	code, result = doJSON(t, r, http.MethodPost, "/session-keys/validate", validateBody)
	if code != http.StatusOK {
		t.Fatalf("validate after revoke returned %d", code)
	}
	if valid, _ := result["valid"].(bool); valid {
		t.Fatal("validation must fail after revocation")
	}
	if reason, _ := result["reason"].(string); !strings.Contains(reason, "revoked") {
		t.Errorf("reason = %q, want revocation", result["reason"])
	}
}

func TestValidateUnknownKeyReturns404(t *testing.T) {
	r := newTestEngine()

	code, _ := doJSON(t, r, http.MethodPost, "/session-keys/validate", map[string]interface{}{
		"publicKey": "0x0000000000000000000000000000000000000003",
		"transaction": map[string]interface{}{
			"from":     "0x2222222222222222222222222222222222222222",
			"to":       "0x00000000000000000000000000000000000000Ab",
			"chainId":  1,
			"deadline": 2_000_000_000,
		},
	})
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
}

func TestCreateSessionKeyBadDuration(t *testing.T) {
	r := newTestEngine()

	code, _ := doJSON(t, r, http.MethodPost, "/session-keys", map[string]interface{}{
		"durationMs":  -5,
		"permissions": map[string]interface{}{},
	})
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
}

func TestAuthorizeConsumesOverHTTP(t *testing.T) {
	r := newTestEngine()

	_, created := doJSON(t, r, http.MethodPost, "/session-keys", map[string]interface{}{
		"durationMs": 60_000,
		"permissions": map[string]interface{}{
			"maxTotalValue": "100",
		},
	})
	publicKey, _ := created["publicKey"].(string)

	body := map[string]interface{}{
		"publicKey": publicKey,
		"transaction": map[string]interface{}{
			"from":     "0x2222222222222222222222222222222222222222",
			"to":       "0x00000000000000000000000000000000000000Ab",
			"value":    "60",
			"chainId":  1,
			"deadline": 2_000_000_000,
		},
	}

	_, first := doJSON(t, r, http.MethodPost, "/session-keys/authorize", body)
	if valid, _ := first["valid"].(bool); !valid {
		t.Fatalf("first authorization failed: %v", first)
	}
	_, second := doJSON(t, r, http.MethodPost, "/session-keys/authorize", body)
	if valid, _ := second["valid"].(bool); valid {
		t.Fatal("second authorization must exceed the cumulative cap")
	}
}
