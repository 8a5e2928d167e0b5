package routes

import (
	"relaycore/controllers"

	"github.com/gin-gonic/gin"
)

// SetupSessionKeyRouter 初始化会话密钥路由
func SetupSessionKeyRouter(r *gin.Engine, sessionKeyController *controllers.SessionKeyController) {
	r.GET("/session-keys", sessionKeyController.List)
	r.POST("/session-keys", sessionKeyController.Create)
	r.POST("/session-keys/validate", sessionKeyController.Validate)
	r.POST("/session-keys/authorize", sessionKeyController.Authorize)
	r.GET("/session-keys/:id", sessionKeyController.Get)
	r.DELETE("/session-keys/:id", sessionKeyController.Revoke)
}
