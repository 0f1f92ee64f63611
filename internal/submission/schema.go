package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tit-pharmacy/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Field names as they appear in the form and in JSON payloads
const (
	FieldCode        = "code"
	FieldName        = "name"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldPrice       = "price"
	FieldQuantity    = "quantity"
	FieldDateAdded   = "dateAdded"
)

// Messages shown next to a failing field
const (
	MsgRequired         = "Bắt buộc"
	MsgInvalidCode      = "Mã sản phẩm không hợp lệ"
	MsgNameTooLong      = "Tên sản phẩm không dài quá 100 ký tự"
	MsgInvalidPrice     = "Giá phải là số"
	MsgInvalidQuantity  = "Số lượng phải là số nguyên"
	MsgQuantityTooSmall = "Số lượng phải lớn hơn 0"
	MsgInvalidDate      = "Ngày không hợp lệ"
	MsgDateInFuture     = "Ngày không được lớn hơn ngày hiện tại"
)

var codePattern = regexp.MustCompile(`^PROD-\d{4}$`)

// Draft holds the raw values typed into the add form
type Draft struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
	DateAdded   string `json:"dateAdded"`
}

// UnmarshalJSON accepts price and quantity as JSON numbers or strings, so a
// product as listed by the API can be posted back unchanged. Unknown fields
// are rejected.
func (d *Draft) UnmarshalJSON(data []byte) error {
	type plain Draft
	aux := struct {
		*plain
		Price    numberText `json:"price"`
		Quantity numberText `json:"quantity"`
	}{plain: (*plain)(d)}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&aux); err != nil {
		return err
	}

	d.Price = string(aux.Price)
	d.Quantity = string(aux.Quantity)
	return nil
}

// numberText is a form value sent either as a JSON string or a JSON number
type numberText string

func (t *numberText) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*t = ""
		return nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*t = numberText(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("expected a number or a string: %w", err)
	}
	*t = numberText(n.String())
	return nil
}

// Value returns the raw value of the named field
func (d Draft) Value(field string) string {
	switch field {
	case FieldCode:
		return d.Code
	case FieldName:
		return d.Name
	case FieldDescription:
		return d.Description
	case FieldCategory:
		return d.Category
	case FieldPrice:
		return d.Price
	case FieldQuantity:
		return d.Quantity
	case FieldDateAdded:
		return d.DateAdded
	default:
		return ""
	}
}

// IsEmpty reports whether every field is blank
func (d Draft) IsEmpty() bool {
	return d == Draft{}
}

// Rule checks one field with a validator tag and names the message shown when it fails
type Rule struct {
	Field   string
	Tag     string
	Message string
}

// Schema is an ordered list of rules. For each field the first failing rule wins.
type Schema struct {
	Rules    []Rule
	validate *validator.Validate
}

// FieldErrors maps a field name to its message
type FieldErrors map[string]string

// DefaultRules returns the product rules
func DefaultRules() []Rule {
	return []Rule{
		{Field: FieldCode, Tag: "required", Message: MsgRequired},
		{Field: FieldCode, Tag: "prodcode", Message: MsgInvalidCode},

		{Field: FieldName, Tag: "required", Message: MsgRequired},
		{Field: FieldName, Tag: "max=100", Message: MsgNameTooLong},

		{Field: FieldCategory, Tag: "required", Message: MsgRequired},

		{Field: FieldPrice, Tag: "required", Message: MsgRequired},
		{Field: FieldPrice, Tag: "decimal", Message: MsgInvalidPrice},

		{Field: FieldQuantity, Tag: "required", Message: MsgRequired},
		{Field: FieldQuantity, Tag: "integer", Message: MsgInvalidQuantity},
		{Field: FieldQuantity, Tag: "intmin=1", Message: MsgQuantityTooSmall},

		{Field: FieldDateAdded, Tag: "required", Message: MsgRequired},
		{Field: FieldDateAdded, Tag: "calendardate", Message: MsgInvalidDate},
		{Field: FieldDateAdded, Tag: "notfuture", Message: MsgDateInFuture},
	}
}

// NewSchema builds a schema from rules, registering the catalog validations
func NewSchema(rules []Rule) *Schema {
	return &Schema{
		Rules:    rules,
		validate: newValidator(),
	}
}

// DefaultSchema returns the product schema
func DefaultSchema() *Schema {
	return NewSchema(DefaultRules())
}

// Validate evaluates every rule against the draft. The clock used by
// date rules is taken from ctx (see WithClock).
func (s *Schema) Validate(ctx context.Context, d Draft) FieldErrors {
	errs := FieldErrors{}
	for _, rule := range s.Rules {
		if _, failed := errs[rule.Field]; failed {
			continue
		}
		// Names are checked as typed; the other fields ignore surrounding blanks
		value := d.Value(rule.Field)
		if rule.Field != FieldName {
			value = strings.TrimSpace(value)
		}
		if err := s.validate.VarCtx(ctx, value, rule.Tag); err != nil {
			errs[rule.Field] = rule.Message
		}
	}
	return errs
}

type clockKey struct{}

// WithClock makes date rules compare against now() instead of time.Now
func WithClock(ctx context.Context, now func() time.Time) context.Context {
	return context.WithValue(ctx, clockKey{}, now)
}

func clockFrom(ctx context.Context) time.Time {
	if now, ok := ctx.Value(clockKey{}).(func() time.Time); ok && now != nil {
		return now()
	}
	return time.Now()
}

func newValidator() *validator.Validate {
	v := validator.New()

	mustRegister(v, "prodcode", func(ctx context.Context, fl validator.FieldLevel) bool {
		return codePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "decimal", func(ctx context.Context, fl validator.FieldLevel) bool {
		_, err := decimal.NewFromString(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "integer", func(ctx context.Context, fl validator.FieldLevel) bool {
		_, err := strconv.Atoi(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "intmin", func(ctx context.Context, fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Field().String())
		if err != nil {
			return false
		}
		min, err := strconv.Atoi(fl.Param())
		if err != nil {
			panic(fmt.Sprintf("intmin: bad parameter %q", fl.Param()))
		}
		return n >= min
	})
	mustRegister(v, "calendardate", func(ctx context.Context, fl validator.FieldLevel) bool {
		_, err := domain.ParseDate(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "notfuture", func(ctx context.Context, fl validator.FieldLevel) bool {
		d, err := domain.ParseDate(fl.Field().String())
		if err != nil {
			return false
		}
		return !d.After(domain.NewDate(clockFrom(ctx)))
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.FuncCtx) {
	if err := v.RegisterValidationCtx(tag, fn); err != nil {
		panic(fmt.Sprintf("failed to register %s validation: %v", tag, err))
	}
}

// Parse converts a draft that passed validation into a product without an id
func Parse(d Draft) (domain.Product, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(d.Price))
	if err != nil {
		return domain.Product{}, fmt.Errorf("invalid price: %w", err)
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(d.Quantity))
	if err != nil {
		return domain.Product{}, fmt.Errorf("invalid quantity: %w", err)
	}

	date, err := domain.ParseDate(strings.TrimSpace(d.DateAdded))
	if err != nil {
		return domain.Product{}, err
	}

	return domain.Product{
		Code:        strings.TrimSpace(d.Code),
		Name:        d.Name,
		Description: d.Description,
		Category:    strings.TrimSpace(d.Category),
		Price:       price,
		Quantity:    quantity,
		DateAdded:   date,
	}, nil
}
