// Package schema validates raw tabular rows against a typed field schema.
//
// A Schema is configuration, not behaviour: each import domain declares its
// own field list and reuses the same validation logic. Validation never
// aborts a batch; every problem surfaces as a FieldError so the caller can
// keep processing subsequent rows.
package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Kind int

const (
	KindString Kind = iota
	KindEmail
	KindDecimal
	KindInt
	KindDate
	KindEnum
)

type Field struct {
	Name     string
	Kind     Kind
	Required bool

	// Enum lists the accepted values for KindEnum fields (compared lowercased).
	Enum []string
	// Domain, when set on a KindEmail field, requires the address to belong
	// to that domain.
	Domain string
	// NonNegative rejects values below zero on KindDecimal fields.
	NonNegative bool
	// Lowercase normalizes the value before it is stored in the Row.
	Lowercase bool
}

type Schema struct {
	Name   string
	Fields []Field
}

// FieldError is a row-level validation failure. It is data, not a control-flow
// signal: rows with field errors are reported and skipped, never fatal.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Row holds the typed values of one validated input row. Optional fields that
// were empty in the input are absent from the map; the typed getters return
// zero values for them.
type Row map[string]any

func (r Row) Has(name string) bool {
	_, ok := r[name]
	return ok
}

func (r Row) String(name string) string {
	v, _ := r[name].(string)
	return v
}

func (r Row) Int(name string) int {
	v, _ := r[name].(int)
	return v
}

func (r Row) Decimal(name string) decimal.Decimal {
	v, ok := r[name].(decimal.Decimal)
	if !ok {
		return decimal.Zero
	}
	return v
}

func (r Row) Date(name string) time.Time {
	v, _ := r[name].(time.Time)
	return v
}

var validate = validator.New()

// Validate coerces one raw record into a typed Row. It is a pure function of
// (raw, schema); on any failure the returned error list is non-empty and the
// Row must be discarded.
func (s Schema) Validate(raw map[string]string) (Row, []FieldError) {
	var errs []FieldError
	row := make(Row, len(s.Fields))

	for _, f := range s.Fields {
		value := strings.TrimSpace(raw[f.Name])
		if value == "" {
			if f.Required {
				errs = append(errs, FieldError{Field: f.Name, Message: "is required"})
			}
			continue
		}
		if f.Lowercase {
			value = strings.ToLower(value)
		}

		typed, err := coerce(f, value)
		if err != nil {
			errs = append(errs, FieldError{Field: f.Name, Message: err.Error()})
			continue
		}
		row[f.Name] = typed
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return row, nil
}

func coerce(f Field, value string) (any, error) {
	switch f.Kind {
	case KindString:
		return value, nil
	case KindEmail:
		if err := validate.Var(value, "email"); err != nil {
			return nil, fmt.Errorf("must be a valid email address")
		}
		addr := strings.ToLower(value)
		if f.Domain != "" {
			domain := addr[strings.LastIndex(addr, "@")+1:]
			if domain != strings.ToLower(f.Domain) {
				return nil, fmt.Errorf("must belong to %s", strings.ToLower(f.Domain))
			}
		}
		return addr, nil
	case KindDecimal:
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("must be a numeric value")
		}
		if f.NonNegative && d.IsNegative() {
			return nil, fmt.Errorf("must not be negative")
		}
		return d, nil
	case KindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("must be an integer")
		}
		return n, nil
	case KindDate:
		return parseDate(value)
	case KindEnum:
		candidate := strings.ToLower(value)
		for _, allowed := range f.Enum {
			if candidate == strings.ToLower(allowed) {
				return candidate, nil
			}
		}
		return nil, fmt.Errorf("must be one of: %s", strings.Join(f.Enum, ", "))
	default:
		return nil, fmt.Errorf("unsupported field kind")
	}
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", value, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		u := t.UTC()
		y, m, d := u.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("must be in YYYY-MM-DD format")
}

// RequiredColumns returns the column names that must appear in an input header.
func (s Schema) RequiredColumns() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Columns returns every column name the schema accepts.
func (s Schema) Columns() []string {
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		out = append(out, f.Name)
	}
	return out
}
