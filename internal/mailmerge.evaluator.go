package internal

import (
	"strings"
)

// Evaluator turns pre-resolved tag content into its replacement text.
type Evaluator struct{}

// NewEvaluator creates an evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate dispatches on the shape of content:
//
//	name                          plain lookup
//	field|op|operand|then|else    comparator, op one of * ^ $ == > >= < <=
//	field|expect|then[|else]      string equality
//
// Anything with a separator but fewer than three tokens is echoed unchanged.
func (e *Evaluator) Evaluate(content string, row RowAccessor) (string, EvalKind) {
	if !strings.Contains(content, StrSeparator) {
		if val, ok := row.Lookup(content); ok {
			return val, EvalKindLookup
		}
		return "", EvalKindMissing
	}

	tokens := strings.Split(content, StrSeparator)

	if len(tokens) >= MinComparatorTokens && IsComparator(tokens[tokOperator]) {
		val, _ := row.Lookup(tokens[tokField])
		matched, ok := compare(tokens[tokOperator], val, tokens[tokOperand])
		if !ok {
			return content, EvalKindMalformed
		}
		if matched {
			return tokens[tokCmpThen], EvalKindComparator
		}
		return tokens[tokCmpElse], EvalKindComparator
	}

	if len(tokens) >= MinTernaryTokens {
		if val, ok := row.Lookup(tokens[tokField]); ok && val == tokens[tokExpect] {
			return tokens[tokThen], EvalKindTernary
		}
		if len(tokens) == MinTernaryTokens {
			return "", EvalKindTernary
		}
		return tokens[tokElse], EvalKindTernary
	}

	return content, EvalKindMalformed
}

// IsComparator reports whether op is a recognized comparator token.
func IsComparator(op string) bool {
	switch op {
	case OpContains, OpStartsWith, OpEndsWith, OpEqual,
		OpGreater, OpGreaterEq, OpLess, OpLessEq:
		return true
	}
	return false
}

// compare applies op to val and operand. The second result is false for an
// unrecognized operator.
func compare(op, val, operand string) (bool, bool) {
	switch op {
	case OpContains:
		return strings.Contains(val, operand), true
	case OpStartsWith:
		return strings.HasPrefix(val, operand), true
	case OpEndsWith:
		return strings.HasSuffix(val, operand), true
	case OpEqual:
		return LooseCompare(val, operand) == 0, true
	case OpGreater:
		return LooseCompare(val, operand) > 0, true
	case OpGreaterEq:
		return LooseCompare(val, operand) >= 0, true
	case OpLess:
		return LooseCompare(val, operand) < 0, true
	case OpLessEq:
		return LooseCompare(val, operand) <= 0, true
	}
	return false, false
}
