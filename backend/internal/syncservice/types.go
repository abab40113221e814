package syncservice

import (
	"encoding/json"

	"sync-service/backend/internal/mutation"
)

type Mutation struct {
	ID        uint64          `json:"id" binding:"required"`
	ClientID  string          `json:"client_id" binding:"required,max=64"`
	Name      mutation.Name   `json:"name" binding:"required"`
	Args      json.RawMessage `json:"args"`
	Timestamp int64           `json:"timestamp"`
}

type PushRequest struct {
	ClientGroupID string     `json:"client_group_id" binding:"required,max=64"`
	Mutations     []Mutation `json:"mutations" binding:"dive"`
}

type PushResult struct {
	Version uint64
	Applied int
	// 已经处理过的 mutation（id <= last_mutation_id）被跳过
	Skipped int
}

type PullRequest struct {
	ClientGroupID string `json:"client_group_id" binding:"required,max=64"`
	// nil 表示客户端什么都没有，需要全量
	Cookie *uint64 `json:"cookie"`
}

type PatchOp string

const (
	OpPut   PatchOp = "put"
	OpDel   PatchOp = "del"
	OpClear PatchOp = "clear"
)

type Patch struct {
	Op    PatchOp         `json:"op"`
	Key   string          `json:"key,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

type PullResponse struct {
	Cookie                uint64            `json:"cookie"`
	LastMutationIDChanges map[string]uint64 `json:"last_mutation_id_changes"`
	Patch                 []Patch           `json:"patch"`
}
