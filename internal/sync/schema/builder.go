package schema

import (
	"errors"
	"fmt"

	"github.com/talentloop/talentsync/internal/sync/filter"
)

// Prefilter construction errors, raised eagerly at build time and never
// during orchestration.
var (
	ErrUnknownField        = errors.New("unknown field")
	ErrUnsupportedOperator = errors.New("operator not allowed on field")
)

// ConditionBuilder constructs prefilter conditions validated against a
// record type's metadata. Obtain one through Where.
type ConditionBuilder struct {
	recordType string
	field      Field
}

// Where returns a builder for prefilter conditions on the named field.
// Fields without prefilter metadata are not eligible.
func Where(rt *RecordType, fieldName string) (ConditionBuilder, error) {
	f, ok := rt.Field(fieldName)
	if !ok {
		return ConditionBuilder{}, fmt.Errorf("record type %q has no field %q: %w", rt.Name(), fieldName, ErrUnknownField)
	}
	if len(f.Prefilter) == 0 {
		return ConditionBuilder{}, fmt.Errorf("field %q on %q declares no prefilter operators: %w", fieldName, rt.Name(), ErrUnsupportedOperator)
	}
	return ConditionBuilder{recordType: rt.Name(), field: f}, nil
}

// Build is the single validated constructor every chain method delegates to.
func (b ConditionBuilder) Build(op filter.Operator, value any) (filter.Condition, error) {
	if !b.field.allowsOperator(op) {
		return filter.Condition{}, fmt.Errorf("operator %q on field %q of %q: %w", op, b.field.Name, b.recordType, ErrUnsupportedOperator)
	}
	cond := filter.Condition{Field: b.field.Name, Op: op, Value: value}
	if err := cond.Validate(); err != nil {
		return filter.Condition{}, err
	}
	return cond, nil
}

func (b ConditionBuilder) Eq(value any) (filter.Condition, error) {
	return b.Build(filter.OpEq, value)
}

func (b ConditionBuilder) Gt(value any) (filter.Condition, error) {
	return b.Build(filter.OpGt, value)
}

func (b ConditionBuilder) Gte(value any) (filter.Condition, error) {
	return b.Build(filter.OpGte, value)
}

func (b ConditionBuilder) Lt(value any) (filter.Condition, error) {
	return b.Build(filter.OpLt, value)
}

func (b ConditionBuilder) Lte(value any) (filter.Condition, error) {
	return b.Build(filter.OpLte, value)
}

func (b ConditionBuilder) In(values []any) (filter.Condition, error) {
	return b.Build(filter.OpIn, values)
}

func (b ConditionBuilder) Contains(value any) (filter.Condition, error) {
	return b.Build(filter.OpContains, value)
}
