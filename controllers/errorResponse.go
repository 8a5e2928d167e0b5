package controllers

import (
	"log"
	"net/http"

	"relaycore/services"

	"github.com/gin-gonic/gin"
)

// respondError 把错误分类映射到 HTTP 状态码。
// 上游故障只记录日志，响应里不暴露上游内部细节
func respondError(c *gin.Context, err error) {
	switch e := err.(type) {
	case *services.ValidationError:
		c.JSON(http.StatusBadRequest, gin.H{"error": e.Message})
	case *services.NotFoundError:
		c.JSON(http.StatusNotFound, gin.H{"error": e.Error()})
	case *services.ExpiredError:
		c.JSON(http.StatusGone, gin.H{"valid": false, "reason": e.Error()})
	case *services.AuthorizationError:
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "reason": e.Reason})
	case *services.UpstreamError:
		log.Printf("upstream failure: %v", e)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream service unavailable"})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
