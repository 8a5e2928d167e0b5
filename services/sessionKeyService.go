package services

import (
	"crypto/ecdsa"
	"math/big"
	"sort"
	"sync"
	"time"

	"relaycore/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MaxSessionKeyDuration 会话密钥的最长有效期
const MaxSessionKeyDuration = 30 * 24 * time.Hour

// SessionKeyManager 管理委托签名密钥的生命周期：创建、列举、吊销、过期。
// 私钥材料只存在于进程内存中，绝不进入任何返回值或序列化输出
type SessionKeyManager struct {
	mu    sync.RWMutex
	clock Clock
	keys  map[common.Address]*sessionKeyEntry
}

type sessionKeyEntry struct {
	record models.SessionKey
	priv   *ecdsa.PrivateKey
}

// NewSessionKeyManager 创建一个新的 SessionKeyManager 实例
func NewSessionKeyManager(clock Clock) *SessionKeyManager {
	return &SessionKeyManager{
		clock: clock,
		keys:  make(map[common.Address]*sessionKeyEntry),
	}
}

// CreateSessionKey 生成一对新的 secp256k1 密钥并登记权限策略，
// 只返回公开字段。duration 必须大于 0 且不超过策略上限
func (m *SessionKeyManager) CreateSessionKey(permissions models.SessionPermissions, duration time.Duration) (models.SessionKey, error) {
	if duration <= 0 {
		return models.SessionKey{}, NewValidationError("durationMs must be positive")
	}
	if duration > MaxSessionKeyDuration {
		return models.SessionKey{}, NewValidationError("durationMs exceeds maximum of %d days", int(MaxSessionKeyDuration.Hours()/24))
	}
	if err := checkPermissions(permissions); err != nil {
		return models.SessionKey{}, err
	}

	priv, err := crypto.GenerateKey()
	if err != nil {
		return models.SessionKey{}, &UpstreamError{Op: "keygen", Err: err}
	}
	addr := crypto.PubkeyToAddress(priv.PublicKey)

	now := m.clock.Now()
	record := models.SessionKey{
		PublicKey:   addr.Hex(),
		Permissions: permissions,
		CreatedAt:   now,
		ExpiresAt:   now.Add(duration),
		Revoked:     false,
	}

	m.mu.Lock()
	m.keys[addr] = &sessionKeyEntry{record: record, priv: priv}
	m.mu.Unlock()

	return record, nil
}

// checkPermissions 校验策略中的金额字段是否为合法的十进制 wei 字符串
func checkPermissions(p models.SessionPermissions) error {
	if p.MaxValue != "" {
		if _, ok := parseWei(p.MaxValue); !ok {
			return NewValidationError("permissions.maxValue is not a valid wei amount")
		}
	}
	if p.MaxTotalValue != "" {
		if _, ok := parseWei(p.MaxTotalValue); !ok {
			return NewValidationError("permissions.maxTotalValue is not a valid wei amount")
		}
	}
	for _, t := range p.AllowedTargets {
		if !common.IsHexAddress(t) {
			return NewValidationError("permissions.allowedTargets contains invalid address %q", t)
		}
	}
	return nil
}

// parseWei 解析非负的十进制 wei 金额
func parseWei(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

// GetActiveSessionKeys 返回未吊销且未过期密钥的快照，不是实时视图
func (m *SessionKeyManager) GetActiveSessionKeys() []models.SessionKey {
	now := m.clock.Now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	active := make([]models.SessionKey, 0, len(m.keys))
	for _, entry := range m.keys {
		if !entry.record.Revoked && now.Before(entry.record.ExpiresAt) {
			active = append(active, entry.record)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	return active
}

// GetSessionKey 按公钥地址查找密钥记录
func (m *SessionKeyManager) GetSessionKey(publicKey string) (models.SessionKey, error) {
	if !common.IsHexAddress(publicKey) {
		return models.SessionKey{}, NewValidationError("invalid session key address %q", publicKey)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.keys[common.HexToAddress(publicKey)]
	if !ok {
		return models.SessionKey{}, &NotFoundError{Resource: "session key", ID: publicKey}
	}
	return entry.record, nil
}

// RevokeSessionKey 吊销密钥，幂等：重复吊销或吊销未知密钥都不算错误
func (m *SessionKeyManager) RevokeSessionKey(publicKey string) {
	if !common.IsHexAddress(publicKey) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.keys[common.HexToAddress(publicKey)]; ok {
		entry.record.Revoked = true
	}
}

// IsExpired 判断密钥是否已过期，纯函数，不修改任何状态
func (m *SessionKeyManager) IsExpired(key models.SessionKey) bool {
	return !m.clock.Now().Before(key.ExpiresAt)
}

// RemainingTime 返回密钥的剩余有效时长，已过期时为 0
func (m *SessionKeyManager) RemainingTime(key models.SessionKey) time.Duration {
	remaining := key.ExpiresAt.Sub(m.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SignHash 用持有的会话私钥对 32 字节摘要签名，
// 已吊销或已过期的密钥拒绝签名。返回 65 字节签名，v 为 27/28
func (m *SessionKeyManager) SignHash(publicKey string, hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, NewValidationError("hash must be 32 bytes")
	}
	if !common.IsHexAddress(publicKey) {
		return nil, NewValidationError("invalid session key address %q", publicKey)
	}

	m.mu.RLock()
	entry, ok := m.keys[common.HexToAddress(publicKey)]
	m.mu.RUnlock()

	if !ok {
		return nil, &NotFoundError{Resource: "session key", ID: publicKey}
	}
	if entry.record.Revoked {
		return nil, &AuthorizationError{Reason: "session key revoked"}
	}
	if m.IsExpired(entry.record) {
		return nil, &ExpiredError{What: "session key"}
	}

	sig, err := crypto.Sign(hash, entry.priv)
	if err != nil {
		return nil, &UpstreamError{Op: "sign", Err: err}
	}
	sig[64] += 27
	return sig, nil
}
