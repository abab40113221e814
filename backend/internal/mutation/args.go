package mutation

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type argsDecoder struct {
	validate *validator.Validate
}

func newArgsDecoder() *argsDecoder {
	v := validator.New()
	// 错误里报 JSON 字段名，而不是 Go 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})
	return &argsDecoder{validate: v}
}

func decimalValue(field reflect.Value) interface{} {
	switch d := field.Interface().(type) {
	case decimal.Decimal:
		f, _ := d.Float64()
		return f
	case decimal.NullDecimal:
		if !d.Valid {
			return nil
		}
		f, _ := d.Decimal.Float64()
		return f
	}
	return nil
}

// decode 严格解码：未知字段、类型不对都算 MalformedArguments
func (a *argsDecoder) decode(data []byte, dst any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "args"
			}
			return malformed(field, "expected %s, got %s", typeErr.Type, typeErr.Value)
		}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return malformed("args", "invalid json at offset %d", syntaxErr.Offset)
		}
		// encoding/json 对未知字段没有专门的错误类型
		if msg := err.Error(); strings.HasPrefix(msg, "json: unknown field ") {
			return malformed(strings.Trim(strings.TrimPrefix(msg, "json: unknown field "), `"`), "unknown field")
		}
		return malformed("args", "%v", err)
	}
	return nil
}

func (a *argsDecoder) check(row any) error {
	err := a.validate.Struct(row)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return malformed(fe.Field(), "failed %q validation", fe.Tag())
	}
	return malformed("args", "%v", err)
}

func (a *argsDecoder) id(args json.RawMessage) (string, error) {
	var req struct {
		ID string `json:"id"`
	}
	if len(bytes.TrimSpace(args)) == 0 {
		return "", malformed("id", "required")
	}
	if err := json.Unmarshal(args, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "id" {
			return "", malformed("id", "expected string")
		}
		return "", malformed("args", "%v", err)
	}
	if req.ID == "" {
		return "", malformed("id", "required")
	}
	return req.ID, nil
}
