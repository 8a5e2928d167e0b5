package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
)

// httpPriceOracle 从外部价格 API 拉取代币报价，
// GET {endpoint}/price?token=ETH → {"token":"ETH","price":"3000.12"}
type httpPriceOracle struct {
	endpoint string
	http     *http.Client
}

// NewHTTPPriceOracle 创建指向给定端点的价格源客户端
func NewHTTPPriceOracle(endpoint string) PriceOracle {
	return &httpPriceOracle{endpoint: endpoint, http: &http.Client{}}
}

func (o *httpPriceOracle) Price(ctx context.Context, token string) (*big.Rat, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"/price?token="+url.QueryEscape(token), nil)
	if err != nil {
		return nil, err
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("price oracle returned %d: %s", resp.StatusCode, payload)
	}

	var result struct {
		Token string `json:"token"`
		Price string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	rate, ok := new(big.Rat).SetString(result.Price)
	if !ok || rate.Sign() < 0 {
		return nil, fmt.Errorf("price oracle returned invalid price %q for %s", result.Price, token)
	}
	return rate, nil
}

// FixedPriceOracle 静态价格表，价格源未配置时的兜底，测试中也用它
type FixedPriceOracle map[string]*big.Rat

func (o FixedPriceOracle) Price(_ context.Context, token string) (*big.Rat, error) {
	rate, ok := o[token]
	if !ok {
		return nil, fmt.Errorf("no price configured for token %s", token)
	}
	return new(big.Rat).Set(rate), nil
}
