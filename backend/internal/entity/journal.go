package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// validate 的长度上限与列定义保持一致，超长的参数在写库前就按 MalformedArguments 拒绝：
// text 列 65535 字节，按 utf8mb4 算 16383 个字符；decimal(20,8) 整数部分最多 12 位。

type Note struct {
	Meta
	Name    string `gorm:"type:varchar(255);not null" json:"name" validate:"required,max=255"`
	Content string `gorm:"type:text" json:"content" validate:"max=16383"`
	// JSON 数组，元素是 tag id
	Tags json.RawMessage `gorm:"type:json" json:"tags,omitempty"`
}

func (Note) Kind() string { return KindNote }

type Tag struct {
	Meta
	Name  string `gorm:"type:varchar(64);not null" json:"name" validate:"required,max=64"`
	Color string `gorm:"type:varchar(16)" json:"color" validate:"omitempty,max=16,hexcolor"`
}

func (Tag) Kind() string { return KindTag }

type Playbook struct {
	Meta
	Name        string          `gorm:"type:varchar(255);not null" json:"name" validate:"required,max=255"`
	Description string          `gorm:"type:text" json:"description" validate:"max=16383"`
	Rules       json.RawMessage `gorm:"type:json" json:"rules,omitempty"`
}

func (Playbook) Kind() string { return KindPlaybook }

// Image 只保存元数据，文件本身在对象存储里
type Image struct {
	Meta
	NoteID      *string `gorm:"type:varchar(64);index" json:"noteId" validate:"omitempty,max=64"`
	FileName    string  `gorm:"type:varchar(255);not null" json:"fileName" validate:"required,max=255"`
	ContentType string  `gorm:"type:varchar(64);not null" json:"contentType" validate:"required,max=64"`
	SizeBytes   int64   `json:"sizeBytes" validate:"gte=0"`
	StoragePath string  `gorm:"type:varchar(512);not null" json:"storagePath" validate:"required,max=512"`
}

func (Image) Kind() string { return KindImage }

type Trade struct {
	Meta
	Symbol     string              `gorm:"type:varchar(32);not null;index" json:"symbol" validate:"required,max=32"`
	Side       string              `gorm:"type:varchar(8);not null" json:"side" validate:"oneof=long short"`
	Quantity   decimal.Decimal     `gorm:"type:decimal(20,8);not null" json:"quantity" validate:"gt=0,lt=1000000000000"`
	EntryPrice decimal.Decimal     `gorm:"type:decimal(20,8);not null" json:"entryPrice" validate:"gt=0,lt=1000000000000"`
	ExitPrice  decimal.NullDecimal `gorm:"type:decimal(20,8)" json:"exitPrice" validate:"omitempty,gt=0,lt=1000000000000"`
	OpenedAt   time.Time           `json:"openedAt" validate:"required"`
	ClosedAt   *time.Time          `json:"closedAt"`
	Notes      string              `gorm:"type:text" json:"notes" validate:"max=16383"`
	PlaybookID *string             `gorm:"type:varchar(64)" json:"playbookId" validate:"omitempty,max=64"`
}

func (Trade) Kind() string { return KindTrade }

type Option struct {
	Meta
	Symbol     string          `gorm:"type:varchar(32);not null;index" json:"symbol" validate:"required,max=32"`
	OptionType string          `gorm:"type:varchar(8);not null" json:"optionType" validate:"oneof=call put"`
	Side       string          `gorm:"type:varchar(8);not null" json:"side" validate:"oneof=buy sell"`
	Strike     decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"strike" validate:"gt=0,lt=1000000000000"`
	Expiration time.Time       `json:"expiration" validate:"required"`
	Quantity   decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"quantity" validate:"gt=0,lt=1000000000000"`
	Premium    decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"premium" validate:"gte=0,lt=1000000000000"`
	OpenedAt   time.Time       `json:"openedAt" validate:"required"`
	ClosedAt   *time.Time      `json:"closedAt"`
}

func (Option) Kind() string { return KindOption }
