package events

import "time"

const TypePushCommitted = "PUSH_COMMITTED"

// PushCommitted 一次 push 提交成功后发往 Kafka 的事件，下游（统计、搜索索引）据此增量拉取
type PushCommitted struct {
	EventType     string    `json:"eventType"` // 固定 "PUSH_COMMITTED"
	UserID        uint64    `json:"userId"`
	ClientGroupID string    `json:"clientGroupId"`
	Version       uint64    `json:"version"`
	Applied       int       `json:"applied"`
	Skipped       int       `json:"skipped"`
	CommittedAt   time.Time `json:"committedAt"`
}
