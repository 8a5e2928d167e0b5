package controllers

import (
	"net/http"
	"time"

	"relaycore/models"
	"relaycore/services"

	"github.com/gin-gonic/gin"
)

// SessionKeyController 会话密钥生命周期和权限校验的 HTTP 处理器
type SessionKeyController struct {
	manager   *services.SessionKeyManager
	validator *services.PermissionValidator
}

// NewSessionKeyController 创建一个新的 SessionKeyController 实例
func NewSessionKeyController(manager *services.SessionKeyManager, validator *services.PermissionValidator) *SessionKeyController {
	return &SessionKeyController{manager: manager, validator: validator}
}

// List 列出所有未吊销且未过期的密钥
func (ctrl *SessionKeyController) List(c *gin.Context) {
	keys := ctrl.manager.GetActiveSessionKeys()

	infos := make([]models.SessionKeyInfo, 0, len(keys))
	for _, key := range keys {
		infos = append(infos, ctrl.keyInfo(key))
	}
	c.JSON(http.StatusOK, gin.H{"sessionKeys": infos})
}

// Create 处理创建会话密钥的请求
func (ctrl *SessionKeyController) Create(c *gin.Context) {
	var request struct {
		Permissions models.SessionPermissions `json:"permissions"`
		DurationMs  int64                     `json:"durationMs" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key, err := ctrl.manager.CreateSessionKey(request.Permissions, time.Duration(request.DurationMs)*time.Millisecond)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"publicKey":   key.PublicKey,
		"permissions": key.Permissions,
		"createdAt":   key.CreatedAt,
		"expiresAt":   key.ExpiresAt,
	})
}

// Get 返回单个密钥的详情，包含剩余时间和过期状态
func (ctrl *SessionKeyController) Get(c *gin.Context) {
	key, err := ctrl.manager.GetSessionKey(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.keyInfo(key))
}

// Revoke 吊销密钥，幂等，对未知密钥同样返回成功
func (ctrl *SessionKeyController) Revoke(c *gin.Context) {
	ctrl.manager.RevokeSessionKey(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Validate 只校验不消费额度
func (ctrl *SessionKeyController) Validate(c *gin.Context) {
	ctrl.check(c, false)
}

// Authorize 校验并原子地消费累计额度，授权实际使用时走这里
func (ctrl *SessionKeyController) Authorize(c *gin.Context) {
	ctrl.check(c, true)
}

func (ctrl *SessionKeyController) check(c *gin.Context, consume bool) {
	var request struct {
		PublicKey   string                        `json:"publicKey" binding:"required"`
		Transaction *models.SignedMetaTransaction `json:"transaction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key, err := ctrl.manager.GetSessionKey(request.PublicKey)
	if err != nil {
		respondError(c, err)
		return
	}

	var result models.ValidationResult
	if consume {
		result = ctrl.validator.Authorize(key, *request.Transaction)
	} else {
		result = ctrl.validator.ValidatePermissions(key, *request.Transaction)
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":         result.Valid,
		"reason":        result.Reason,
		"remainingTime": ctrl.manager.RemainingTime(key).Milliseconds(),
	})
}

func (ctrl *SessionKeyController) keyInfo(key models.SessionKey) models.SessionKeyInfo {
	info := models.SessionKeyInfo{
		PublicKey:     key.PublicKey,
		Permissions:   key.Permissions,
		CreatedAt:     key.CreatedAt,
		ExpiresAt:     key.ExpiresAt,
		RemainingTime: ctrl.manager.RemainingTime(key).Milliseconds(),
		IsExpired:     ctrl.manager.IsExpired(key),
	}
	if key.Permissions.MaxTotalValue != "" {
		info.SpentAmount = ctrl.validator.SpentAmount(key.PublicKey).String()
	}
	return info
}
