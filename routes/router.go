package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化基础路由
func SetupRouter(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
