package entity

import "time"

const (
	KindTrade    = "trade"
	KindOption   = "option"
	KindNote     = "note"
	KindTag      = "tag"
	KindPlaybook = "playbook"
	KindImage    = "image"
)

// Meta 所有可同步实体共有的字段，匿名嵌入即可
type Meta struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// 最后一次写入时的 SpaceVersion，永远不会是 0
	Version uint64 `gorm:"not null;index" json:"version"`
}

func (m *Meta) GetMeta() *Meta { return m }

// Versioned 可同步实体
type Versioned interface {
	Kind() string
	GetMeta() *Meta
}

// Key 返回 patch 里使用的 key，例如 note/01HV...
func Key(kind, id string) string {
	return kind + "/" + id
}

// Syncable 参与 pull 的全部实体，顺序即 pull 的表顺序
func Syncable() []Versioned {
	return []Versioned{&Trade{}, &Option{}, &Note{}, &Tag{}, &Playbook{}, &Image{}}
}
