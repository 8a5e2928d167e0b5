package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"relaycore/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// 类型化数据域参数，和链上验证合约保持一致
const (
	typedDataDomainName    = "GaslessWallet"
	typedDataDomainVersion = "1"
)

// RelayClient 外部中继/打包器的窄接口。
// Submit 必须幂等：重复提交相同负载返回同一个 txId，不产生重复上链效果，
// 这是对中继方的契约要求，本核心不自行实现去重
type RelayClient interface {
	Submit(ctx context.Context, metaTx models.SignedMetaTransaction, verifyingContract string) (string, error)
	Status(ctx context.Context, txID string) (string, error)
}

// MetaTransactionRelay 负责元交易的签名验证、deadline 检查和转发提交
type MetaTransactionRelay struct {
	clock  Clock
	client RelayClient // 默认中继，未配置时为 nil

	// ClientFor 按端点构造中继客户端，供状态查询覆盖端点时使用
	ClientFor func(endpoint string) RelayClient
}

// NewMetaTransactionRelay 创建一个新的 MetaTransactionRelay 实例
func NewMetaTransactionRelay(client RelayClient, clock Clock) *MetaTransactionRelay {
	return &MetaTransactionRelay{
		clock:  clock,
		client: client,
		ClientFor: func(endpoint string) RelayClient {
			return NewHTTPRelayClient(endpoint)
		},
	}
}

// TypedDataHash 按 EIP-712 对 {from,to,value,data,chainId,deadline}
// 绑定验证合约计算摘要，任何一个字段变化摘要都不同
func TypedDataHash(tx models.SignedMetaTransaction, verifyingContract string) (common.Hash, error) {
	if !common.IsHexAddress(tx.From) {
		return common.Hash{}, NewValidationError("invalid from address %q", tx.From)
	}
	if !common.IsHexAddress(tx.To) {
		return common.Hash{}, NewValidationError("invalid to address %q", tx.To)
	}
	if !common.IsHexAddress(verifyingContract) {
		return common.Hash{}, NewValidationError("invalid verifying contract %q", verifyingContract)
	}
	value, ok := parseWei(txValue(tx))
	if !ok {
		return common.Hash{}, NewValidationError("transaction value is not a valid wei amount")
	}
	data := tx.Data
	if data == "" {
		data = "0x"
	}
	if _, err := hexutil.Decode(data); err != nil {
		return common.Hash{}, NewValidationError("invalid call data: %v", err)
	}

	typed := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"MetaTransaction": []apitypes.Type{
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "data", Type: "bytes"},
				{Name: "chainId", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "MetaTransaction",
		Domain: apitypes.TypedDataDomain{
			Name:              typedDataDomainName,
			Version:           typedDataDomainVersion,
			ChainId:           math.NewHexOrDecimal256(int64(tx.ChainID)),
			VerifyingContract: common.HexToAddress(verifyingContract).Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"from":     common.HexToAddress(tx.From).Hex(),
			"to":       common.HexToAddress(tx.To).Hex(),
			"value":    (*math.HexOrDecimal256)(value),
			"data":     data,
			"chainId":  math.NewHexOrDecimal256(int64(tx.ChainID)),
			"deadline": math.NewHexOrDecimal256(tx.Deadline),
		},
	}

	domainSeparator, err := typed.HashStruct("EIP712Domain", typed.Domain.Map())
	if err != nil {
		return common.Hash{}, NewValidationError("failed to hash domain: %v", err)
	}
	messageHash, err := typed.HashStruct(typed.PrimaryType, typed.Message)
	if err != nil {
		return common.Hash{}, NewValidationError("failed to hash message: %v", err)
	}

	// EIP-712 最终摘要: keccak256("\x19\x01" ‖ domainSeparator ‖ hashStruct(message))
	raw := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(messageHash)))
	return common.BytesToHash(crypto.Keccak256(raw)), nil
}

// VerifySignature 从签名恢复签名者地址并和 from 比对，
// 没有部分通过：任何不一致都返回 false
func (r *MetaTransactionRelay) VerifySignature(tx models.SignedMetaTransaction, verifyingContract string) bool {
	hash, err := TypedDataHash(tx, verifyingContract)
	if err != nil {
		return false
	}

	sig, err := hexutil.Decode(tx.Signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return false
	}
	// 恢复前把 v 从 27/28 归一化到 0/1
	sigCopy := make([]byte, crypto.SignatureLength)
	copy(sigCopy, sig)
	if sigCopy[64] >= 27 {
		sigCopy[64] -= 27
	}

	pubKey, err := crypto.SigToPub(hash.Bytes(), sigCopy)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pubKey) == common.HexToAddress(tx.From)
}

// SubmitToRelayer 先查 deadline 再验签名，最后转发到中继。
// deadline 已过直接拒绝，不做任何网络往返，即便签名本身有效
func (r *MetaTransactionRelay) SubmitToRelayer(ctx context.Context, tx models.SignedMetaTransaction, verifyingContract string) (string, error) {
	if tx.Deadline < r.clock.Now().Unix() {
		return "", &ExpiredError{What: "transaction deadline"}
	}
	if !r.VerifySignature(tx, verifyingContract) {
		return "", &AuthorizationError{Reason: "invalid signature"}
	}
	if r.client == nil {
		return "", NewValidationError("no relayer endpoint configured")
	}

	txID, err := r.client.Submit(ctx, tx, verifyingContract)
	if err != nil {
		return "", &UpstreamError{Op: "relay submit", Err: err}
	}
	return txID, nil
}

// GetStatus 轮询中继获取交易状态。endpoint 为空时使用默认中继；
// 两者都没有时返回明确的错误，而不是伪造一个状态
func (r *MetaTransactionRelay) GetStatus(ctx context.Context, txID, endpoint string) (string, error) {
	if txID == "" {
		return "", NewValidationError("txId is required")
	}

	client := r.client
	if endpoint != "" {
		client = r.ClientFor(endpoint)
	}
	if client == nil {
		return "", NewValidationError("status tracking requires a relayer endpoint")
	}

	status, err := client.Status(ctx, txID)
	if err != nil {
		return "", &UpstreamError{Op: "relay status", Err: err}
	}
	switch status {
	case models.RelayStatusPending, models.RelayStatusIncluded, models.RelayStatusFailed:
		return status, nil
	default:
		return "", &UpstreamError{Op: "relay status", Err: fmt.Errorf("unknown status %q", status)}
	}
}

// httpRelayClient 通过 JSON over HTTP 和中继通信
type httpRelayClient struct {
	endpoint string
	http     *http.Client
}

// NewHTTPRelayClient 创建指向给定端点的中继客户端，
// 超时由调用方通过 ctx 控制
func NewHTTPRelayClient(endpoint string) RelayClient {
	return &httpRelayClient{endpoint: endpoint, http: &http.Client{}}
}

func (c *httpRelayClient) Submit(ctx context.Context, metaTx models.SignedMetaTransaction, verifyingContract string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"metaTransaction":   metaTx,
		"verifyingContract": verifyingContract,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/submit", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("relayer returned %d: %s", resp.StatusCode, payload)
	}

	var result struct {
		TxID string `json:"txId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.TxID == "" {
		return "", fmt.Errorf("relayer returned empty txId")
	}
	return result.TxID, nil
}

func (c *httpRelayClient) Status(ctx context.Context, txID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/status?txId="+url.QueryEscape(txID), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("relayer returned %d: %s", resp.StatusCode, payload)
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Status, nil
}
