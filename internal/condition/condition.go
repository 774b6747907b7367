// Package condition parses and evaluates the single-comparison visibility
// expressions used by show-when and hide-when markers:
//
//	field:value     equality (case-insensitive; booleans and numbers compare by value)
//	field:>=value   numeric comparison, also >, <=, <
package condition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-listbind/internal/domain"
)

// ErrMalformed reports an expression that does not follow field:value.
var ErrMalformed = errors.New("condition: malformed expression")

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = ""
	OpGte Op = ">="
	OpLte Op = "<="
	OpGt  Op = ">"
	OpLt  Op = "<"
)

// Two-character operators must be tried first.
var comparators = []Op{OpGte, OpLte, OpGt, OpLt}

// Expr is a parsed condition.
type Expr struct {
	Field string
	Op    Op
	Value string
}

func (e Expr) String() string {
	return e.Field + ":" + string(e.Op) + e.Value
}

// Parse builds an expression. Field and value are trimmed; an empty field or
// a missing separator is malformed.
func Parse(src string) (Expr, error) {
	field, rest, ok := strings.Cut(src, ":")
	if !ok {
		return Expr{}, fmt.Errorf("%w: %q has no ':'", ErrMalformed, src)
	}
	field = strings.TrimSpace(field)
	if field == "" {
		return Expr{}, fmt.Errorf("%w: %q has no field", ErrMalformed, src)
	}
	rest = strings.TrimSpace(rest)
	expr := Expr{Field: field, Op: OpEq}
	for _, op := range comparators {
		if strings.HasPrefix(rest, string(op)) {
			expr.Op = op
			rest = strings.TrimSpace(strings.TrimPrefix(rest, string(op)))
			break
		}
	}
	expr.Value = rest
	return expr, nil
}

// Eval applies the expression to record. A missing or null field is false.
func (e Expr) Eval(record domain.Record) bool {
	actual, ok := record.Value(e.Field)
	if !ok {
		return false
	}
	if e.Op != OpEq {
		left, lok := domain.Number(actual)
		right, rok := domain.Number(e.Value)
		if !lok || !rok {
			return false
		}
		switch e.Op {
		case OpGte:
			return left >= right
		case OpLte:
			return left <= right
		case OpGt:
			return left > right
		case OpLt:
			return left < right
		}
		return false
	}

	switch typed := actual.(type) {
	case bool:
		expected, err := strconv.ParseBool(strings.ToLower(e.Value))
		return err == nil && typed == expected
	case string:
		return strings.EqualFold(typed, e.Value)
	}
	if left, ok := domain.Number(actual); ok {
		right, rok := domain.Number(e.Value)
		return rok && left == right
	}
	return strings.EqualFold(domain.Stringify(actual), e.Value)
}

// Evaluate parses and applies src. Malformed expressions are false.
func Evaluate(record domain.Record, src string) bool {
	expr, err := Parse(src)
	if err != nil {
		return false
	}
	return expr.Eval(record)
}

// Visible combines optional show and hide expressions: the element is shown
// when show (if set) holds and hide (if set) does not.
func Visible(record domain.Record, show, hide string) bool {
	visible := true
	if strings.TrimSpace(show) != "" {
		visible = Evaluate(record, show)
	}
	if strings.TrimSpace(hide) != "" && Evaluate(record, hide) {
		visible = false
	}
	return visible
}
