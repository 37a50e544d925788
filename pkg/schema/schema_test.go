package schema

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return Schema{
		Name: "test",
		Fields: []Field{
			{Name: "roll_no", Kind: KindString, Required: true},
			{Name: "official_email", Kind: KindEmail, Required: true, Domain: "pmc.edu.pk"},
			{Name: "recovery_email", Kind: KindEmail},
			{Name: "year", Kind: KindInt, Required: true},
			{Name: "written_marks", Kind: KindDecimal, Required: true},
			{Name: "exam_date", Kind: KindDate, Required: true},
			{Name: "status", Kind: KindEnum, Enum: []string{"active", "inactive"}},
		},
	}
}

func validRaw() map[string]string {
	return map[string]string{
		"roll_no":        "PMC-001",
		"official_email": "Jdoe@PMC.edu.pk",
		"year":           "2025",
		"written_marks":  "70.50",
		"exam_date":      "2025-03-14",
	}
}

func TestSchemaValidate_TypedValues(t *testing.T) {
	row, errs := testSchema().Validate(validRaw())
	require.Empty(t, errs)

	assert.Equal(t, "PMC-001", row.String("roll_no"))
	assert.Equal(t, "jdoe@pmc.edu.pk", row.String("official_email"))
	assert.Equal(t, 2025, row.Int("year"))
	assert.True(t, row.Decimal("written_marks").Equal(decimal.RequireFromString("70.5")))
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), row.Date("exam_date"))
	assert.False(t, row.Has("status"))
}

func TestSchemaValidate_MissingRequired(t *testing.T) {
	raw := validRaw()
	delete(raw, "roll_no")
	raw["official_email"] = "   "

	row, errs := testSchema().Validate(raw)
	require.Nil(t, row)
	require.Len(t, errs, 2)
	assert.Equal(t, FieldError{Field: "roll_no", Message: "is required"}, errs[0])
	assert.Equal(t, "official_email", errs[1].Field)
}

func TestSchemaValidate_CoercionFailures(t *testing.T) {
	raw := validRaw()
	raw["year"] = "twenty"
	raw["written_marks"] = "seventy"
	raw["exam_date"] = "14/03/2025"

	row, errs := testSchema().Validate(raw)
	require.Nil(t, row)
	require.Len(t, errs, 3)

	byField := map[string]string{}
	for _, e := range errs {
		byField[e.Field] = e.Message
	}
	assert.Equal(t, "must be an integer", byField["year"])
	assert.Equal(t, "must be a numeric value", byField["written_marks"])
	assert.Equal(t, "must be in YYYY-MM-DD format", byField["exam_date"])
}

func TestSchemaValidate_NonNegativeDecimal(t *testing.T) {
	s := Schema{
		Name: "test",
		Fields: []Field{
			{Name: "written_marks", Kind: KindDecimal, Required: true, NonNegative: true},
			{Name: "adjustment", Kind: KindDecimal},
		},
	}

	_, errs := s.Validate(map[string]string{"written_marks": "-5"})
	require.Len(t, errs, 1)
	assert.Equal(t, FieldError{Field: "written_marks", Message: "must not be negative"}, errs[0])

	row, errs := s.Validate(map[string]string{"written_marks": "0"})
	require.Empty(t, errs)
	assert.True(t, row.Decimal("written_marks").IsZero())

	// unconstrained decimal fields still accept negative values
	row, errs = s.Validate(map[string]string{"written_marks": "70", "adjustment": "-2.5"})
	require.Empty(t, errs)
	assert.True(t, row.Decimal("adjustment").IsNegative())
}

func TestSchemaValidate_EmailDomain(t *testing.T) {
	raw := validRaw()
	raw["official_email"] = "jdoe@gmail.com"

	_, errs := testSchema().Validate(raw)
	require.Len(t, errs, 1)
	assert.Equal(t, "official_email", errs[0].Field)
	assert.Equal(t, "must belong to pmc.edu.pk", errs[0].Message)

	// recovery email is unconstrained by domain
	raw = validRaw()
	raw["recovery_email"] = "personal@gmail.com"
	row, errs := testSchema().Validate(raw)
	require.Empty(t, errs)
	assert.Equal(t, "personal@gmail.com", row.String("recovery_email"))
}

func TestSchemaValidate_Enum(t *testing.T) {
	raw := validRaw()
	raw["status"] = "Active"
	row, errs := testSchema().Validate(raw)
	require.Empty(t, errs)
	assert.Equal(t, "active", row.String("status"))

	raw["status"] = "expelled"
	_, errs = testSchema().Validate(raw)
	require.Len(t, errs, 1)
	assert.Equal(t, "status", errs[0].Field)
}

func TestSchemaValidate_RFC3339DateTruncatedToDay(t *testing.T) {
	raw := validRaw()
	raw["exam_date"] = "2025-03-14T09:30:00Z"
	row, errs := testSchema().Validate(raw)
	require.Empty(t, errs)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), row.Date("exam_date"))
}

func TestSchemaColumns(t *testing.T) {
	s := testSchema()
	assert.Equal(t, []string{"roll_no", "official_email", "year", "written_marks", "exam_date"}, s.RequiredColumns())
	assert.Len(t, s.Columns(), 7)
}
