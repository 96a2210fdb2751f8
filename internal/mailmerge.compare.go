package internal

import (
	"errors"
	"strconv"
	"strings"
)

// numericWhitespace is the set of characters allowed around a numeric string.
const numericWhitespace = " \t\n\r\v\f"

// number is a parsed numeric string. Integers that fit in int64 are kept
// exact so large identifiers compare correctly.
type number struct {
	isInt bool
	i     int64
	f     float64
}

// LooseCompare compares a and b, returning -1, 0 or 1.
// When both are numeric strings they are compared as numbers, so "10" > "9"
// and "1e1" == "10". Otherwise the comparison is byte-wise on the raw strings.
func LooseCompare(a, b string) int {
	an, aok := parseNumber(a)
	bn, bok := parseNumber(b)
	if aok && bok {
		return compareNumbers(an, bn)
	}
	return strings.Compare(a, b)
}

// IsNumeric reports whether s is a numeric string: optional surrounding
// whitespace, an optional sign, digits with an optional fraction, and an
// optional exponent. Hex, underscores, "inf" and "nan" are not numeric.
func IsNumeric(s string) bool {
	_, ok := parseNumber(s)
	return ok
}

func parseNumber(s string) (number, bool) {
	t := strings.Trim(s, numericWhitespace)
	if !isNumericLiteral(t) {
		return number{}, false
	}
	if !strings.ContainsAny(t, ".eE") {
		if i, err := strconv.ParseInt(t, 10, 64); err == nil {
			return number{isInt: true, i: i, f: float64(i)}, true
		}
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		// Out-of-range exponents still yield ±Inf or 0 with ErrRange.
		if !errors.Is(err, strconv.ErrRange) {
			return number{}, false
		}
	}
	return number{f: f}, true
}

// isNumericLiteral checks [+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?
func isNumericLiteral(t string) bool {
	i := 0
	n := len(t)
	if i < n && (t[i] == '+' || t[i] == '-') {
		i++
	}

	intDigits := 0
	for i < n && isDigit(t[i]) {
		i++
		intDigits++
	}

	fracDigits := 0
	if i < n && t[i] == '.' {
		i++
		for i < n && isDigit(t[i]) {
			i++
			fracDigits++
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return false
	}

	if i < n && (t[i] == 'e' || t[i] == 'E') {
		i++
		if i < n && (t[i] == '+' || t[i] == '-') {
			i++
		}
		expDigits := 0
		for i < n && isDigit(t[i]) {
			i++
			expDigits++
		}
		if expDigits == 0 {
			return false
		}
	}

	return i == n
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func compareNumbers(a, b number) int {
	if a.isInt && b.isInt {
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		}
		return 0
	}
	switch {
	case a.f < b.f:
		return -1
	case a.f > b.f:
		return 1
	}
	return 0
}
