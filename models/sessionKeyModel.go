package models

import "time"

// SessionPermissions 会话密钥的权限策略
// 空的或省略的限制字段表示"不限制"，而不是"全部拒绝"
type SessionPermissions struct {
	AllowedTargets  []string `json:"allowedTargets,omitempty"`  // 允许的目标合约/收款地址
	AllowedMethods  []string `json:"allowedMethods,omitempty"`  // 允许的方法选择器，如 "0xa9059cbb"
	MaxValue        string   `json:"maxValue,omitempty"`        // 单笔交易金额上限（wei，十进制字符串）
	MaxTotalValue   string   `json:"maxTotalValue,omitempty"`   // 密钥生命周期内累计消费上限（wei）
	AllowedChainIDs []uint64 `json:"allowedChainIds,omitempty"` // 允许的链 ID
}

// SessionKey 委托签名凭证的公开记录，私钥材料绝不出现在这里
type SessionKey struct {
	PublicKey   string             `json:"publicKey"`
	Permissions SessionPermissions `json:"permissions"`
	CreatedAt   time.Time          `json:"createdAt"`
	ExpiresAt   time.Time          `json:"expiresAt"`
	Revoked     bool               `json:"revoked"`
}

// SessionKeyInfo 对外返回的密钥信息，附带派生字段
type SessionKeyInfo struct {
	PublicKey     string             `json:"publicKey"`
	Permissions   SessionPermissions `json:"permissions"`
	CreatedAt     time.Time          `json:"createdAt"`
	ExpiresAt     time.Time          `json:"expiresAt"`
	RemainingTime int64              `json:"remainingTime"` // 毫秒
	IsExpired     bool               `json:"isExpired"`
	SpentAmount   string             `json:"spentAmount,omitempty"` // 已累计消费（wei）
}

// ValidationResult 权限校验结果，校验失败不抛异常而是返回原因
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}
