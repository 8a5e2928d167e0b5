package controllers

import (
	"log"
	"net/http"

	"relaycore/models"
	"relaycore/services"
	"relaycore/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RelayController 元交易提交和状态查询的 HTTP 处理器
type RelayController struct {
	relay *services.MetaTransactionRelay
	store *storage.SubmissionStore // 可选，未配置数据库时为 nil
	clock services.Clock

	defaultVerifyingContract string
}

// NewRelayController 创建一个新的 RelayController 实例
func NewRelayController(relay *services.MetaTransactionRelay, store *storage.SubmissionStore, clock services.Clock, verifyingContract string) *RelayController {
	return &RelayController{
		relay:                    relay,
		store:                    store,
		clock:                    clock,
		defaultVerifyingContract: verifyingContract,
	}
}

// Submit 处理已签名元交易的提交请求。
// deadline 和签名在转发前本地校验，过期的授权不会产生任何中继调用
func (ctrl *RelayController) Submit(c *gin.Context) {
	var request struct {
		MetaTransaction   *models.SignedMetaTransaction `json:"metaTransaction" binding:"required"`
		VerifyingContract string                        `json:"verifyingContract"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verifyingContract := request.VerifyingContract
	if verifyingContract == "" {
		verifyingContract = ctrl.defaultVerifyingContract
	}

	txID, err := ctrl.relay.SubmitToRelayer(c.Request.Context(), *request.MetaTransaction, verifyingContract)
	if err != nil {
		respondError(c, err)
		return
	}

	ctrl.recordSubmission(*request.MetaTransaction, verifyingContract, txID)

	c.JSON(http.StatusOK, gin.H{"txId": txID})
}

// Status 轮询中继获取交易状态
func (ctrl *RelayController) Status(c *gin.Context) {
	txID := c.Query("txId")
	endpoint := c.Query("relayerEndpoint")

	status, err := ctrl.relay.GetStatus(c.Request.Context(), txID, endpoint)
	if err != nil {
		respondError(c, err)
		return
	}

	if ctrl.store != nil {
		if err := ctrl.store.UpdateStatus(txID, status, ctrl.clock.Now()); err != nil {
			log.Printf("failed to update submission status for %s: %v", txID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"txId": txID, "status": status})
}

// recordSubmission 提交成功后落库，存储未配置或出错时只记日志，不影响响应
func (ctrl *RelayController) recordSubmission(tx models.SignedMetaTransaction, verifyingContract, txID string) {
	if ctrl.store == nil {
		return
	}

	payloadHash := ""
	if hash, err := services.TypedDataHash(tx, verifyingContract); err == nil {
		payloadHash = hash.Hex()
	}

	now := ctrl.clock.Now()
	sub := models.RelaySubmission{
		ID:          uuid.NewString(),
		TxID:        txID,
		ChainID:     tx.ChainID,
		From:        tx.From,
		To:          tx.To,
		PayloadHash: payloadHash,
		Status:      models.RelayStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := ctrl.store.Save(sub); err != nil {
		log.Printf("failed to persist submission %s: %v", txID, err)
	}
}
