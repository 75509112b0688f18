package model

import (
	"encoding/json"
	"time"
)

// FailedItem 批处理中失败的单条记录
type FailedItem struct {
	ID        int64           `json:"id"`
	BatchKind string          `json:"batch_kind"`
	ItemID    string          `json:"item_id"`
	Status    string          `json:"status"`
	Error     string          `json:"error"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
