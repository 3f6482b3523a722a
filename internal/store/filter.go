// internal/store/filter.go
package store

import (
	"fmt"
	"sort"

	"kc-restaurants/internal/common/errors"
)

// Filter is a single-level, document-style query filter. A field maps either
// to a literal value (equality) or to an operator map such as
// {"$gte": 4.0}. No $and/$or composition; conditions on distinct fields are
// implicitly conjoined.
type Filter map[string]interface{}

const (
	opExists = "$exists"
	opNe     = "$ne"
	opGte    = "$gte"
	opLte    = "$lte"
	opGt     = "$gt"
	opLt     = "$lt"
)

var supportedOperators = map[string]bool{
	opExists: true,
	opNe:     true,
	opGte:    true,
	opLte:    true,
	opGt:     true,
	opLt:     true,
}

// Condition is one normalized field constraint extracted from a Filter.
type Condition struct {
	Field    string
	Operator string // empty for plain equality
	Value    interface{}
}

// Conditions validates the filter and flattens it into a deterministic,
// field-sorted list of conditions. Operator maps expand to one condition per
// operator.
func (f Filter) Conditions() ([]Condition, error) {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	conds := make([]Condition, 0, len(f))
	for _, field := range fields {
		value := f[field]

		opMap, ok := value.(map[string]interface{})
		if !ok {
			conds = append(conds, Condition{Field: field, Value: value})
			continue
		}

		if len(opMap) == 0 {
			return nil, errors.NewInvalidFilterFormatError(
				fmt.Sprintf("empty operator map for field %q", field))
		}

		ops := make([]string, 0, len(opMap))
		for op := range opMap {
			ops = append(ops, op)
		}
		sort.Strings(ops)

		for _, op := range ops {
			if !supportedOperators[op] {
				return nil, errors.NewInvalidFilterFormatError(
					fmt.Sprintf("unsupported operator %q for field %q", op, field))
			}
			if op == opExists {
				if _, isBool := opMap[op].(bool); !isBool {
					return nil, errors.NewInvalidFilterFormatError(
						fmt.Sprintf("$exists requires a boolean for field %q", field))
				}
			}
			conds = append(conds, Condition{Field: field, Operator: op, Value: opMap[op]})
		}
	}

	return conds, nil
}
