package controllers

import (
	"log"
	"net/http"
	"strconv"

	"relaycore/models"
	"relaycore/services"

	"github.com/gin-gonic/gin"
)

// GasController 费率报价的 HTTP 处理器
type GasController struct {
	oracle *services.GasOracle
	prices services.PriceOracle
}

// NewGasController 创建一个新的 GasController 实例
func NewGasController(oracle *services.GasOracle, prices services.PriceOracle) *GasController {
	return &GasController{oracle: oracle, prices: prices}
}

type gasEstimateResponse struct {
	models.GasEstimateResponse
	CostBreakdown *models.CostBreakdown `json:"costBreakdown,omitempty"`
}

// Estimate 返回多档位费率，带 gasLimit 参数时附加费用拆解
func (ctrl *GasController) Estimate(c *gin.Context) {
	chainID, err := strconv.ParseUint(c.Query("chainId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chainId must be a positive integer"})
		return
	}

	estimates, err := ctrl.oracle.GetGasEstimates(c.Request.Context(), chainID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := gasEstimateResponse{GasEstimateResponse: *estimates}

	if raw := c.Query("gasLimit"); raw != "" {
		gasLimit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || gasLimit == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "gasLimit must be a positive integer"})
			return
		}
		response.CostBreakdown = ctrl.costBreakdown(c, estimates, gasLimit)
	}

	c.JSON(http.StatusOK, response)
}

// costBreakdown 用推荐档位算费用拆解，价格源不可用时省略而不是失败
func (ctrl *GasController) costBreakdown(c *gin.Context, estimates *models.GasEstimateResponse, gasLimit uint64) *models.CostBreakdown {
	rate, err := ctrl.prices.Price(c.Request.Context(), estimates.NativeToken)
	if err != nil {
		log.Printf("price lookup for %s failed: %v", estimates.NativeToken, err)
		return nil
	}

	for _, tier := range estimates.Estimates {
		if tier.Tier == estimates.Recommended {
			breakdown, err := services.CalculateCost(tier, gasLimit, rate)
			if err != nil {
				log.Printf("cost calculation failed: %v", err)
				return nil
			}
			return &breakdown
		}
	}
	return nil
}
