package csvimport

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// FieldType represents the expected type of a field
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInt     FieldType = "int"
	TypeDecimal FieldType = "decimal"
)

// FieldRule defines validation rules for a field
type FieldRule struct {
	Column    string
	Type      FieldType
	Required  bool
	MaxLength int
	MinValue  *decimal.Decimal
}

// FieldRuleBuilder helps build field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field creates a new field rule builder
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{
		rule: FieldRule{
			Column: strings.ToLower(column),
			Type:   TypeString,
		},
	}
}

// Required marks the field as required
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

// Int sets the field type to integer; values like "3.0" are accepted
func (b *FieldRuleBuilder) Int() *FieldRuleBuilder {
	b.rule.Type = TypeInt
	return b
}

// Decimal sets the field type to decimal
func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

// MaxLength sets the maximum length in runes
func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// MinValue sets the minimum numeric value
func (b *FieldRuleBuilder) MinValue(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &v
	return b
}

// Build returns the constructed rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator validates rows against a set of rules
type FieldValidator struct {
	rules []FieldRule
}

// NewFieldValidator creates a validator; rules with an empty column are ignored
func NewFieldValidator(rules ...FieldRule) *FieldValidator {
	kept := make([]FieldRule, 0, len(rules))
	for _, r := range rules {
		if r.Column != "" {
			kept = append(kept, r)
		}
	}
	return &FieldValidator{rules: kept}
}

// ValidateRow validates one row and returns every violation found
func (v *FieldValidator) ValidateRow(row *Row) []RowError {
	var errs []RowError
	for _, rule := range v.rules {
		if err := validateField(row.LineNumber, rule, row.Get(rule.Column)); err != nil {
			errs = append(errs, *err)
		}
	}
	return errs
}

func validateField(line int, rule FieldRule, value string) *RowError {
	if value == "" {
		if rule.Required {
			e := NewRowError(line, rule.Column, ErrCodeImportRequiredField,
				fmt.Sprintf("field '%s' is required", rule.Column))
			return &e
		}
		return nil
	}

	if rule.MaxLength > 0 && utf8.RuneCountInString(value) > rule.MaxLength {
		e := NewRowErrorWithValue(line, rule.Column, ErrCodeImportInvalidLength,
			fmt.Sprintf("length must be at most %d", rule.MaxLength), value)
		return &e
	}

	switch rule.Type {
	case TypeInt, TypeDecimal:
		d, err := decimal.NewFromString(value)
		if err != nil || (rule.Type == TypeInt && !d.Equal(d.Truncate(0))) {
			e := NewRowErrorWithValue(line, rule.Column, ErrCodeImportInvalidType,
				fmt.Sprintf("expected %s", rule.Type), value)
			return &e
		}
		if rule.MinValue != nil && d.LessThan(*rule.MinValue) {
			e := NewRowErrorWithValue(line, rule.Column, ErrCodeImportInvalidRange,
				fmt.Sprintf("value must be at least %s", rule.MinValue.String()), value)
			return &e
		}
	}
	return nil
}
