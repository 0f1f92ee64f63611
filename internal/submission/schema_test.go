package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 10, 19, 15, 30, 0, 0, time.UTC)

func clockCtx() context.Context {
	return WithClock(context.Background(), func() time.Time { return fixedNow })
}

func validDraft() Draft {
	return Draft{
		Code:      "PROD-0001",
		Name:      "Paracetamol",
		Category:  "Giảm đau",
		Price:     "10000",
		Quantity:  "5",
		DateAdded: fixedNow.Format("2006-01-02"),
	}
}

func TestSchema_ValidDraftHasNoErrors(t *testing.T) {
	errs := DefaultSchema().Validate(clockCtx(), validDraft())
	assert.Empty(t, errs)
}

func TestSchema_EmptyDraftRequiresEveryMandatoryField(t *testing.T) {
	errs := DefaultSchema().Validate(clockCtx(), Draft{})

	assert.Equal(t, FieldErrors{
		FieldCode:      MsgRequired,
		FieldName:      MsgRequired,
		FieldCategory:  MsgRequired,
		FieldPrice:     MsgRequired,
		FieldQuantity:  MsgRequired,
		FieldDateAdded: MsgRequired,
	}, errs)
}

func TestSchema_FieldMessages(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Draft)
		field   string
		message string
	}{
		{"short code", func(d *Draft) { d.Code = "PROD-12" }, FieldCode, MsgInvalidCode},
		{"lowercase code", func(d *Draft) { d.Code = "prod-0001" }, FieldCode, MsgInvalidCode},
		{"five digit code", func(d *Draft) { d.Code = "PROD-00001" }, FieldCode, MsgInvalidCode},
		{"long name", func(d *Draft) { d.Name = strings.Repeat("a", 101) }, FieldName, MsgNameTooLong},
		{"price not a number", func(d *Draft) { d.Price = "mười" }, FieldPrice, MsgInvalidPrice},
		{"fractional quantity", func(d *Draft) { d.Quantity = "1.5" }, FieldQuantity, MsgInvalidQuantity},
		{"zero quantity", func(d *Draft) { d.Quantity = "0" }, FieldQuantity, MsgQuantityTooSmall},
		{"negative quantity", func(d *Draft) { d.Quantity = "-4" }, FieldQuantity, MsgQuantityTooSmall},
		{"malformed date", func(d *Draft) { d.DateAdded = "19/10/2024" }, FieldDateAdded, MsgInvalidDate},
		{"future date", func(d *Draft) { d.DateAdded = "2024-10-20" }, FieldDateAdded, MsgDateInFuture},
		{"blank category", func(d *Draft) { d.Category = "   " }, FieldCategory, MsgRequired},
	}

	schema := DefaultSchema()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := validDraft()
			tc.mutate(&d)

			errs := schema.Validate(clockCtx(), d)
			require.Len(t, errs, 1)
			assert.Equal(t, tc.message, errs[tc.field])
		})
	}
}

func TestSchema_NameLengthCountsCharacters(t *testing.T) {
	d := validDraft()
	d.Name = strings.Repeat("ệ", 100)

	assert.Empty(t, DefaultSchema().Validate(clockCtx(), d))
}

func TestSchema_NegativeAndFractionalPricesPass(t *testing.T) {
	for _, price := range []string{"-1", "0", "12.75", " 300 "} {
		d := validDraft()
		d.Price = price
		assert.Empty(t, DefaultSchema().Validate(clockCtx(), d), "price %q", price)
	}
}

func TestSchema_CategoryIsNotCheckedAgainstList(t *testing.T) {
	d := validDraft()
	d.Category = "Không có trong danh sách"

	assert.Empty(t, DefaultSchema().Validate(clockCtx(), d))
}

func TestSchema_DefaultClockIsNow(t *testing.T) {
	d := validDraft()
	d.DateAdded = time.Now().Format("2006-01-02")

	assert.Empty(t, DefaultSchema().Validate(context.Background(), d))
}

// Feature: pharmacy-inventory, Property 7: Quantity boundary is inclusive at 1
func TestProperty_QuantityBoundary(t *testing.T) {
	properties := gopter.NewProperties(nil)
	schema := DefaultSchema()

	properties.Property("quantity passes iff it is at least 1", prop.ForAll(
		func(quantity int) bool {
			d := validDraft()
			d.Quantity = fmt.Sprintf("%d", quantity)

			_, failed := schema.Validate(clockCtx(), d)[FieldQuantity]
			return failed == (quantity < 1)
		},
		gen.IntRange(-1000, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: pharmacy-inventory, Property 8: Dates after today are rejected
func TestProperty_DateBoundary(t *testing.T) {
	properties := gopter.NewProperties(nil)
	schema := DefaultSchema()

	properties.Property("dateAdded passes iff it is not after today", prop.ForAll(
		func(offsetDays int) bool {
			d := validDraft()
			d.DateAdded = fixedNow.AddDate(0, 0, offsetDays).Format("2006-01-02")

			_, failed := schema.Validate(clockCtx(), d)[FieldDateAdded]
			return failed == (offsetDays > 0)
		},
		gen.IntRange(-3650, 3650),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: pharmacy-inventory, Property 9: Only PROD- followed by four digits is a valid code
func TestProperty_CodePattern(t *testing.T) {
	properties := gopter.NewProperties(nil)
	schema := DefaultSchema()

	properties.Property("codes with exactly four digits pass", prop.ForAll(
		func(digits string) bool {
			d := validDraft()
			d.Code = "PROD-" + digits

			_, failed := schema.Validate(clockCtx(), d)[FieldCode]
			return failed == (len(digits) != 4)
		},
		gen.RegexMatch(`[0-9]{0,8}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSchema_CustomRules(t *testing.T) {
	schema := NewSchema([]Rule{
		{Field: FieldDescription, Tag: "max=5", Message: "too long"},
	})

	errs := schema.Validate(context.Background(), Draft{Description: "quá dài"})
	assert.Equal(t, FieldErrors{FieldDescription: "too long"}, errs)
}

func TestParse(t *testing.T) {
	p, err := Parse(Draft{
		Code:        " PROD-0042 ",
		Name:        "Vitamin C",
		Description: "Viên sủi",
		Category:    "Vitamin",
		Price:       "2500.50",
		Quantity:    " 12",
		DateAdded:   "2024-10-01",
	})
	require.NoError(t, err)

	assert.Equal(t, "PROD-0042", p.Code)
	assert.Equal(t, "2500.5", p.Price.String())
	assert.Equal(t, 12, p.Quantity)
	assert.Equal(t, "2024-10-01", p.DateAdded.String())
	assert.Zero(t, p.ID)
}

func TestDraft_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		price    string
		quantity string
		wantErr  bool
	}{
		{name: "numbers", body: `{"price":10000,"quantity":5}`, price: "10000", quantity: "5"},
		{name: "strings", body: `{"price":"8000","quantity":"3"}`, price: "8000", quantity: "3"},
		{name: "fraction kept as typed", body: `{"price":12.50,"quantity":1.5}`, price: "12.50", quantity: "1.5"},
		{name: "null is blank", body: `{"price":null}`},
		{name: "array", body: `{"price":[1]}`, wantErr: true},
		{name: "object", body: `{"quantity":{"n":1}}`, wantErr: true},
		{name: "unknown field", body: `{"stock":5}`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var d Draft
			err := json.Unmarshal([]byte(tc.body), &d)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.price, d.Price)
			assert.Equal(t, tc.quantity, d.Quantity)
		})
	}
}

func TestDraft_UnmarshalJSONKeepsOtherFields(t *testing.T) {
	body := `{"code":"PROD-0005","name":"Paracetamol","category":"Giảm đau","price":10000,"quantity":5,"dateAdded":"2024-10-01"}`

	var d Draft
	require.NoError(t, json.Unmarshal([]byte(body), &d))
	assert.Equal(t, Draft{
		Code:      "PROD-0005",
		Name:      "Paracetamol",
		Category:  "Giảm đau",
		Price:     "10000",
		Quantity:  "5",
		DateAdded: "2024-10-01",
	}, d)
	assert.Empty(t, DefaultSchema().Validate(clockCtx(), d))
}
