package services

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"relaycore/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// PermissionValidator 把候选交易和会话密钥的策略逐项比对，一律失败即拒绝。
// 校验顺序固定：吊销/过期 → 链 → 目标地址 → 方法选择器 → 单笔上限 → 累计上限，
// 返回第一个失败项的原因
type PermissionValidator struct {
	clock Clock

	// spent 的检查和累加必须在同一个临界区内完成，
	// 否则两笔并发授权可能同时通过同一份剩余额度
	mu    sync.Mutex
	spent map[common.Address]*big.Int
}

// NewPermissionValidator 创建一个新的 PermissionValidator 实例
func NewPermissionValidator(clock Clock) *PermissionValidator {
	return &PermissionValidator{
		clock: clock,
		spent: make(map[common.Address]*big.Int),
	}
}

// ValidatePermissions 只检查不消费：通过与否都不影响累计消费额度
func (v *PermissionValidator) ValidatePermissions(key models.SessionKey, tx models.SignedMetaTransaction) models.ValidationResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.evaluate(key, tx, false)
}

// Authorize 检查并消费：通过时把交易金额计入该密钥的累计消费。
// 检查和记账在同一临界区内，两笔并发授权不可能都越过共享的剩余额度
func (v *PermissionValidator) Authorize(key models.SessionKey, tx models.SignedMetaTransaction) models.ValidationResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.evaluate(key, tx, true)
}

// evaluate 调用方必须持有 v.mu
func (v *PermissionValidator) evaluate(key models.SessionKey, tx models.SignedMetaTransaction, consume bool) models.ValidationResult {
	if key.Revoked {
		return deny("session key has been revoked")
	}
	if !v.clock.Now().Before(key.ExpiresAt) {
		return deny("session key has expired")
	}

	p := key.Permissions

	if len(p.AllowedChainIDs) > 0 && !containsChain(p.AllowedChainIDs, tx.ChainID) {
		return deny(fmt.Sprintf("chain %d is not permitted", tx.ChainID))
	}

	if len(p.AllowedTargets) > 0 && !containsAddress(p.AllowedTargets, tx.To) {
		return deny(fmt.Sprintf("target %s is not permitted", tx.To))
	}

	if len(p.AllowedMethods) > 0 {
		selector, err := methodSelector(tx.Data)
		if err != nil {
			return deny("call data has no method selector")
		}
		if !containsSelector(p.AllowedMethods, selector) {
			return deny(fmt.Sprintf("method %s is not permitted", selector))
		}
	}

	value, ok := parseWei(txValue(tx))
	if !ok {
		return deny("transaction value is not a valid wei amount")
	}

	if p.MaxValue != "" {
		maxValue, _ := parseWei(p.MaxValue)
		if value.Cmp(maxValue) > 0 {
			return deny("value exceeds per-transaction cap")
		}
	}

	if p.MaxTotalValue != "" {
		maxTotal, _ := parseWei(p.MaxTotalValue)
		addr := common.HexToAddress(key.PublicKey)
		spent := v.spent[addr]
		if spent == nil {
			spent = new(big.Int)
		}
		if new(big.Int).Add(spent, value).Cmp(maxTotal) > 0 {
			return deny("cumulative spend cap exceeded")
		}
		if consume {
			v.spent[addr] = new(big.Int).Add(spent, value)
		}
	}

	return models.ValidationResult{Valid: true}
}

// SpentAmount 返回该密钥下已累计消费的金额，从未消费过时为 0
func (v *PermissionValidator) SpentAmount(publicKey string) *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()

	if spent, ok := v.spent[common.HexToAddress(publicKey)]; ok {
		return new(big.Int).Set(spent)
	}
	return new(big.Int)
}

func deny(reason string) models.ValidationResult {
	return models.ValidationResult{Valid: false, Reason: reason}
}

func txValue(tx models.SignedMetaTransaction) string {
	if tx.Value == "" {
		return "0"
	}
	return tx.Value
}

// methodSelector 取调用数据前 4 字节作为方法选择器
func methodSelector(data string) (string, error) {
	if data == "" {
		return "", fmt.Errorf("empty call data")
	}
	raw, err := hexutil.Decode(data)
	if err != nil {
		return "", err
	}
	if len(raw) < 4 {
		return "", fmt.Errorf("call data shorter than 4 bytes")
	}
	return hexutil.Encode(raw[:4]), nil
}

func containsChain(chains []uint64, chainID uint64) bool {
	for _, c := range chains {
		if c == chainID {
			return true
		}
	}
	return false
}

func containsAddress(addrs []string, addr string) bool {
	if !common.IsHexAddress(addr) {
		return false
	}
	target := common.HexToAddress(addr)
	for _, a := range addrs {
		if common.IsHexAddress(a) && common.HexToAddress(a) == target {
			return true
		}
	}
	return false
}

func containsSelector(selectors []string, selector string) bool {
	for _, s := range selectors {
		if strings.EqualFold(s, selector) {
			return true
		}
	}
	return false
}
