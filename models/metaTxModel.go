package models

import "time"

// SignedMetaTransaction 用户已授权、尚未上链的元交易
// 签名覆盖 {from,to,value,data,chainId,deadline} 并绑定到验证合约，
// 任何字段被篡改都会使签名失效
type SignedMetaTransaction struct {
	From      string `json:"from" binding:"required"`
	To        string `json:"to" binding:"required"`
	Value     string `json:"value"` // wei，十进制字符串，缺省为 0
	Data      string `json:"data"`  // "0x" 前缀的十六进制调用数据
	ChainID   uint64 `json:"chainId" binding:"required"`
	Deadline  int64  `json:"deadline" binding:"required"` // 秒级时间戳，提交时检查
	Signature string `json:"signature"`
}

// 中继交易状态
const (
	RelayStatusPending  = "pending"
	RelayStatusIncluded = "included"
	RelayStatusFailed   = "failed"
)

// RelaySubmission 已提交到中继的交易记录
type RelaySubmission struct {
	ID          string    `json:"id"`
	TxID        string    `json:"txId"`
	ChainID     uint64    `json:"chainId"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	PayloadHash string    `json:"payloadHash"` // 元交易的类型化数据哈希
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
