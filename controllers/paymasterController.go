package controllers

import (
	"net/http"

	"relaycore/models"
	"relaycore/services"

	"github.com/gin-gonic/gin"
)

// PaymasterController 代付报价的 HTTP 处理器
type PaymasterController struct {
	estimator *services.PaymasterEstimator
}

// NewPaymasterController 创建一个新的 PaymasterController 实例
func NewPaymasterController(estimator *services.PaymasterEstimator) *PaymasterController {
	return &PaymasterController{estimator: estimator}
}

type paymasterQuoteResponse struct {
	models.PaymasterQuote
	PaymasterAvailable bool `json:"paymasterAvailable"`
}

// Estimate 处理完整代付报价请求
func (ctrl *PaymasterController) Estimate(c *gin.Context) {
	var request struct {
		Transaction *models.SignedMetaTransaction `json:"transaction" binding:"required"`
		ChainID     uint64                        `json:"chainId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quote, err := ctrl.estimator.EstimateGas(c.Request.Context(), *request.Transaction, request.ChainID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, paymasterQuoteResponse{
		PaymasterQuote:     *quote,
		PaymasterAvailable: ctrl.estimator.IsPaymasterAvailable(request.ChainID),
	})
}
