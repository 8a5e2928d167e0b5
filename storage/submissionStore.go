package storage

import (
	"database/sql"
	"time"

	"relaycore/models"
)

// SubmissionStore 把已提交到中继的交易记录落到 MySQL，
// 供状态轮询和事后审计使用
type SubmissionStore struct {
	db *sql.DB
}

// NewSubmissionStore 创建一个新的 SubmissionStore 实例
func NewSubmissionStore(db *sql.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

// Init 建表，幂等
func (s *SubmissionStore) Init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS relay_submissions (
		id           VARCHAR(36)  NOT NULL,
		tx_id        VARCHAR(128) NOT NULL,
		chain_id     BIGINT UNSIGNED NOT NULL,
		from_addr    VARCHAR(42)  NOT NULL,
		to_addr      VARCHAR(42)  NOT NULL,
		payload_hash VARCHAR(66)  NOT NULL,
		status       VARCHAR(16)  NOT NULL,
		created_at   DATETIME(3)  NOT NULL,
		updated_at   DATETIME(3)  NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uniq_tx_id (tx_id),
		KEY idx_payload_hash (payload_hash)
	)`)
	return err
}

// Save 写入一条提交记录
func (s *SubmissionStore) Save(sub models.RelaySubmission) error {
	_, err := s.db.Exec(
		`INSERT INTO relay_submissions
			(id, tx_id, chain_id, from_addr, to_addr, payload_hash, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE status = VALUES(status), updated_at = VALUES(updated_at)`,
		sub.ID, sub.TxID, sub.ChainID, sub.From, sub.To, sub.PayloadHash, sub.Status, sub.CreatedAt, sub.UpdatedAt,
	)
	return err
}

// UpdateStatus 根据轮询结果更新交易状态
func (s *SubmissionStore) UpdateStatus(txID, status string, updatedAt time.Time) error {
	_, err := s.db.Exec(
		`UPDATE relay_submissions SET status = ?, updated_at = ? WHERE tx_id = ?`,
		status, updatedAt, txID,
	)
	return err
}

// GetByTxID 按中继返回的交易 ID 查找记录
func (s *SubmissionStore) GetByTxID(txID string) (models.RelaySubmission, error) {
	var sub models.RelaySubmission
	err := s.db.QueryRow(
		`SELECT id, tx_id, chain_id, from_addr, to_addr, payload_hash, status, created_at, updated_at
		 FROM relay_submissions WHERE tx_id = ?`, txID,
	).Scan(&sub.ID, &sub.TxID, &sub.ChainID, &sub.From, &sub.To, &sub.PayloadHash, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return models.RelaySubmission{}, err
	}
	return sub, nil
}
