package entity

import "time"

// SpaceRowID 每个租户库里只有一行 space_versions
const SpaceRowID uint8 = 1

// SpaceVersion 租户库的逻辑时钟，每次 push 提交 +1
type SpaceVersion struct {
	ID      uint8  `gorm:"primaryKey;autoIncrement:false"`
	Version uint64 `gorm:"not null"`
}

func (SpaceVersion) TableName() string { return "space_versions" }

// ClientRecord 记录每个客户端副本的进度，用于去重与 pull 的 mutation id 变化
type ClientRecord struct {
	ClientGroupID       string `gorm:"primaryKey;type:varchar(64)"`
	ClientID            string `gorm:"primaryKey;type:varchar(64)"`
	LastMutationID      uint64 `gorm:"not null"`
	LastModifiedVersion uint64 `gorm:"not null;index"`
	UserID              uint64 `gorm:"not null;index"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (ClientRecord) TableName() string { return "sync_clients" }

// Tombstone 硬删除之后留下的记录，pull 时翻译成 del patch
type Tombstone struct {
	Kind      string `gorm:"primaryKey;type:varchar(32)"`
	EntityID  string `gorm:"primaryKey;type:varchar(64)"`
	Version   uint64 `gorm:"not null;index"`
	DeletedAt time.Time
}

func (Tombstone) TableName() string { return "tombstones" }
