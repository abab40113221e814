package mutation

import (
	"encoding/json"
	"errors"
	"fmt"

	"sync-service/backend/internal/entity"
)

var (
	ErrUnknownMutation    = errors.New("unknown mutation")
	ErrMalformedArguments = errors.New("malformed arguments")
)

// Name 支持的 mutation 是一个封闭集合，解码时就拒绝未知的名字
type Name string

const (
	CreateNote     Name = "createNote"
	UpdateNote     Name = "updateNote"
	DeleteNote     Name = "deleteNote"
	CreateTag      Name = "createTag"
	UpdateTag      Name = "updateTag"
	DeleteTag      Name = "deleteTag"
	CreatePlaybook Name = "createPlaybook"
	UpdatePlaybook Name = "updatePlaybook"
	DeletePlaybook Name = "deletePlaybook"
	CreateImage    Name = "createImage"
	DeleteImage    Name = "deleteImage"
	CreateTrade    Name = "createTrade"
	UpdateTrade    Name = "updateTrade"
	DeleteTrade    Name = "deleteTrade"
	CreateOption   Name = "createOption"
	UpdateOption   Name = "updateOption"
	DeleteOption   Name = "deleteOption"
)

type op int

const (
	opCreate op = iota
	opUpdate
	opDelete
)

type route struct {
	kind string
	op   op
}

var routes = map[Name]route{
	CreateNote:     {entity.KindNote, opCreate},
	UpdateNote:     {entity.KindNote, opUpdate},
	DeleteNote:     {entity.KindNote, opDelete},
	CreateTag:      {entity.KindTag, opCreate},
	UpdateTag:      {entity.KindTag, opUpdate},
	DeleteTag:      {entity.KindTag, opDelete},
	CreatePlaybook: {entity.KindPlaybook, opCreate},
	UpdatePlaybook: {entity.KindPlaybook, opUpdate},
	DeletePlaybook: {entity.KindPlaybook, opDelete},
	CreateImage:    {entity.KindImage, opCreate},
	DeleteImage:    {entity.KindImage, opDelete},
	CreateTrade:    {entity.KindTrade, opCreate},
	UpdateTrade:    {entity.KindTrade, opUpdate},
	DeleteTrade:    {entity.KindTrade, opDelete},
	CreateOption:   {entity.KindOption, opCreate},
	UpdateOption:   {entity.KindOption, opUpdate},
	DeleteOption:   {entity.KindOption, opDelete},
}

func ParseName(s string) (Name, error) {
	n := Name(s)
	if _, ok := routes[n]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMutation, s)
	}
	return n, nil
}

func (n *Name) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: name must be a string", ErrUnknownMutation)
	}
	parsed, err := ParseName(s)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

func malformed(field, format string, args ...any) error {
	return fmt.Errorf("%w: field %q: %s", ErrMalformedArguments, field, fmt.Sprintf(format, args...))
}
