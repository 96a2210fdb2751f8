package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluator_Evaluate(t *testing.T) {
	e := NewEvaluator()

	tests := []struct {
		name         string
		content      string
		row          mapRow
		expected     string
		expectedKind EvalKind
	}{
		{"lookup", "name", mapRow{"name": "Ann"}, "Ann", EvalKindLookup},
		{"lookup empty value", "name", mapRow{"name": ""}, "", EvalKindLookup},
		{"missing", "nope", mapRow{"name": "Ann"}, "", EvalKindMissing},
		{"lookup with spaces is literal key", " name ", mapRow{"name": "Ann"}, "", EvalKindMissing},

		{"ternary 4 match", "plan|pro|P|F", mapRow{"plan": "pro"}, "P", EvalKindTernary},
		{"ternary 4 no match", "plan|pro|P|F", mapRow{"plan": "free"}, "F", EvalKindTernary},
		{"ternary 3 match", "plan|pro|P", mapRow{"plan": "pro"}, "P", EvalKindTernary},
		{"ternary 3 no match", "plan|pro|P", mapRow{"plan": "free"}, "", EvalKindTernary},
		{"ternary missing field never matches", "plan||P|F", mapRow{}, "F", EvalKindTernary},
		{"ternary empty expect matches empty value", "plan||P|F", mapRow{"plan": ""}, "P", EvalKindTernary},
		{"ternary is string equality", "n|10|ten|other", mapRow{"n": "10.0"}, "other", EvalKindTernary},
		{"ternary with comparator token but only 4 tokens", "n|>|5|big", mapRow{"n": ">"}, "5", EvalKindTernary},
		{"five tokens without operator fall to ternary", "a|x|then|else|extra", mapRow{"a": "y"}, "else", EvalKindTernary},

		{"malformed two tokens", "a|b", mapRow{"a": "b"}, "a|b", EvalKindMalformed},
		{"malformed trailing separator", "a|", mapRow{"a": ""}, "a|", EvalKindMalformed},
		{"malformed lone separator", "|", mapRow{}, "|", EvalKindMalformed},

		{"contains", "tags|*|b|Yes|No", mapRow{"tags": "a,b,c"}, "Yes", EvalKindComparator},
		{"contains no", "tags|*|b|Yes|No", mapRow{"tags": "x,y"}, "No", EvalKindComparator},
		{"contains empty operand", "tags|*||Yes|No", mapRow{"tags": "x"}, "Yes", EvalKindComparator},
		{"starts with", "mail|^|info@|Info|Other", mapRow{"mail": "info@example.com"}, "Info", EvalKindComparator},
		{"starts with no", "mail|^|info@|Info|Other", mapRow{"mail": "sales@example.com"}, "Other", EvalKindComparator},
		{"ends with", "mail|$|.de|DE|Intl", mapRow{"mail": "a@b.de"}, "DE", EvalKindComparator},
		{"ends with no", "mail|$|.de|DE|Intl", mapRow{"mail": "a@b.com"}, "Intl", EvalKindComparator},
		{"equal numeric", "n|==|10|eq|ne", mapRow{"n": "10.0"}, "eq", EvalKindComparator},
		{"equal exponent", "n|==|1e1|eq|ne", mapRow{"n": "10"}, "eq", EvalKindComparator},
		{"equal string", "n|==|abc|eq|ne", mapRow{"n": "abc"}, "eq", EvalKindComparator},
		{"equal string case sensitive", "n|==|abc|eq|ne", mapRow{"n": "ABC"}, "ne", EvalKindComparator},
		{"greater numeric", "score|>|5|High|Low", mapRow{"score": "10"}, "High", EvalKindComparator},
		{"greater numeric not lexicographic", "score|>|9|High|Low", mapRow{"score": "10"}, "High", EvalKindComparator},
		{"greater equal boundary", "score|>=|5|ok|no", mapRow{"score": "5"}, "ok", EvalKindComparator},
		{"less", "score|<|5|low|high", mapRow{"score": "-3"}, "low", EvalKindComparator},
		{"less equal boundary", "score|<=|5.0|ok|no", mapRow{"score": "5"}, "ok", EvalKindComparator},
		{"less equal false", "score|<=|4|ok|no", mapRow{"score": "5"}, "no", EvalKindComparator},
		{"missing field compares as empty", "score|>|5|High|Low", mapRow{}, "Low", EvalKindComparator},
		{"extra tokens ignored", "n|==|1|a|b|c", mapRow{"n": "1"}, "a", EvalKindComparator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kind := e.Evaluate(tt.content, tt.row)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.expectedKind, kind)
		})
	}
}

// Mixed numeric and non-numeric operands are where loose comparison is most
// likely to surprise template authors; pin the behavior down.
func TestEvaluator_MixedOperands(t *testing.T) {
	e := NewEvaluator()

	tests := []struct {
		name     string
		content  string
		row      mapRow
		expected string
	}{
		{"number vs word compares as strings", "v|>|abc|gt|le", mapRow{"v": "10"}, "le"},
		{"word vs number compares as strings", "v|>|10|gt|le", mapRow{"v": "abc"}, "gt"},
		{"empty vs zero is not equal", "v|==|0|eq|ne", mapRow{"v": ""}, "ne"},
		{"empty is less than number as strings", "v|<|0|lt|ge", mapRow{"v": ""}, "lt"},
		{"number with unit is a string", "v|>|9|gt|le", mapRow{"v": "10kg"}, "le"},
		{"surrounding whitespace still numeric", "v|==|10|eq|ne", mapRow{"v": " 10 "}, "eq"},
		{"leading zeros numeric", "v|==|7|eq|ne", mapRow{"v": "007"}, "eq"},
		{"hex is not numeric", "v|==|16|eq|ne", mapRow{"v": "0x10"}, "ne"},
		{"large integers exact", "v|>|9007199254740992|gt|le", mapRow{"v": "9007199254740993"}, "gt"},
		{"signs", "v|<|-1|lt|ge", mapRow{"v": "-2.5"}, "lt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := e.Evaluate(tt.content, tt.row)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestIsComparator(t *testing.T) {
	for _, op := range []string{"*", "^", "$", "==", ">", ">=", "<", "<="} {
		assert.True(t, IsComparator(op), op)
	}
	for _, op := range []string{"", "=", "!=", "=>", "=<", "**", "contains"} {
		assert.False(t, IsComparator(op), op)
	}
}

func TestCompare_UnknownOperator(t *testing.T) {
	_, ok := compare("!=", "a", "b")
	assert.False(t, ok)
}
