package routes

import (
	"relaycore/controllers"

	"github.com/gin-gonic/gin"
)

// SetupPaymasterRouter 初始化代付报价路由
func SetupPaymasterRouter(r *gin.Engine, paymasterController *controllers.PaymasterController) {
	r.POST("/paymaster/estimate", paymasterController.Estimate)
}
