package inference

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Data types assigned to a column from its non-empty values.
const (
	TypeEmpty    = "empty"
	TypeInteger  = "integer"
	TypeBoolean  = "boolean"
	TypeDate     = "date"
	TypeDatetime = "datetime"
	TypeFloat    = "float"
	TypeString   = "string"
)

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
}

var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 03:04:05 PM",
	"1/2/2006 3:04:05 PM",
	"01/02/2006 15:04",
}

// inferType picks the most specific type that every value satisfies.
// Integers win over booleans so 0/1 columns stay numeric.
func inferType(values []string) string {
	if len(values) == 0 {
		return TypeEmpty
	}
	allInt, allFloat, allBool, allDate, allTS := true, true, true, true, true
	for _, v := range values {
		if allInt && !isInteger(v) {
			allInt = false
		}
		if allFloat && !isFloat(v) {
			allFloat = false
		}
		if allBool && !isBool(v) {
			allBool = false
		}
		if allDate && !isDate(v) {
			allDate = false
		}
		if allTS && !isDatetime(v) {
			allTS = false
		}
		if !allInt && !allFloat && !allBool && !allDate && !allTS {
			break
		}
	}
	switch {
	case allInt:
		return TypeInteger
	case allBool:
		return TypeBoolean
	case allDate:
		return TypeDate
	case allTS:
		return TypeDatetime
	case allFloat:
		return TypeFloat
	default:
		return TypeString
	}
}

func isInteger(s string) bool {
	_, err := strconv.ParseInt(stripThousands(s), 10, 64)
	return err == nil
}

func isFloat(s string) bool {
	f, err := strconv.ParseFloat(stripThousands(s), 64)
	if err != nil {
		return false
	}
	// ParseFloat accepts "NaN" and "Inf", which are words in a CSV.
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// stripThousands removes grouping commas from values like "1,234,567".
func stripThousands(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	parts := strings.Split(s, ",")
	for i, p := range parts[1:] {
		digits := p
		if i == len(parts)-2 {
			digits, _, _ = strings.Cut(p, ".")
		}
		if len(digits) != 3 {
			return s
		}
	}
	return strings.Join(parts, "")
}

func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "t", "f", "yes", "no", "y", "n":
		return true
	default:
		return false
	}
}

func isDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isDatetime(s string) bool {
	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
