package inference

import (
	"regexp"
	"strings"
)

// Semantic labels predicted for a column.
const (
	LabelEmail      = "EMAIL_ADDRESS"
	LabelURL        = "URL"
	LabelIPv4       = "IPV4"
	LabelIPv6       = "IPV6"
	LabelMAC        = "MAC_ADDRESS"
	LabelSSN        = "SSN"
	LabelPhone      = "PHONE_NUMBER"
	LabelUUID       = "UUID"
	LabelCreditCard = "CREDIT_CARD"
	LabelUSState    = "US_STATE"
	LabelPostalCode = "POSTAL_CODE"
	LabelAddress    = "ADDRESS"
	LabelPerson     = "PERSON"
	LabelDatetime   = "DATETIME"
	LabelDate       = "DATE"
	LabelBoolean    = "BOOLEAN"
	LabelID         = "ID"
	LabelInteger    = "INTEGER"
	LabelFloat      = "FLOAT"
	LabelText       = "TEXT"
	LabelCategory   = "CATEGORY"
	LabelUnknown    = "UNKNOWN"
)

// valueRule matches a label against individual cell values. When hints is set
// the column header must also mention one of them, for patterns that collide
// with plain numbers or words.
type valueRule struct {
	label string
	match func(string) bool
	hints []string
}

var (
	uuidPattern    = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	emailPattern   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	urlPattern     = regexp.MustCompile(`(?i)^(https?|ftp)://[^\s]+$|^www\.[^\s]+\.[a-z]{2,}(/[^\s]*)?$`)
	ipv4Pattern    = regexp.MustCompile(`^((25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)$`)
	ipv6Pattern    = regexp.MustCompile(`(?i)^(([0-9a-f]{1,4}:){7}[0-9a-f]{1,4}|([0-9a-f]{1,4}:){1,7}:|([0-9a-f]{1,4}:){1,6}:[0-9a-f]{1,4}|::([0-9a-f]{1,4}:){0,5}[0-9a-f]{1,4}|::)$`)
	macPattern     = regexp.MustCompile(`(?i)^([0-9a-f]{2}[:-]){5}[0-9a-f]{2}$`)
	ssnPattern     = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	phonePattern   = regexp.MustCompile(`^(\+?1[\s.-]?)?(\(\d{3}\)|\d{3})[\s.-]?\d{3}[\s.-]?\d{4}(\s*(x|ext\.?)\s*\d{1,5})?$`)
	cardPattern    = regexp.MustCompile(`^\d{4}([\s-]?\d{4}){2}[\s-]?\d{1,7}$`)
	postalPattern  = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	addressPattern = regexp.MustCompile(`(?i)^\d+[a-z]?\s+([a-z0-9.'#-]+\s+){0,5}(st|street|ave|avenue|rd|road|blvd|boulevard|dr|drive|ln|lane|way|ct|court|pl|place|hwy|highway|pkwy|parkway|ter|terrace|cir|circle|sq|square)\b\.?`)
	personPattern  = regexp.MustCompile(`^[A-Z][a-zA-Z'-]+(,\s*|\s+)([A-Z]\.?\s+)?[A-Z][a-zA-Z'-]+(\s+[A-Z][a-zA-Z'-]+)?\.?$`)
)

var usStates = func() map[string]struct{} {
	names := []string{
		"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA", "HI", "ID", "IL", "IN", "IA",
		"KS", "KY", "LA", "ME", "MD", "MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
		"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC", "SD", "TN", "TX", "UT", "VT",
		"VA", "WA", "WV", "WI", "WY", "DC", "PR", "GU", "VI", "AS", "MP",
		"Alabama", "Alaska", "Arizona", "Arkansas", "California", "Colorado", "Connecticut",
		"Delaware", "Florida", "Georgia", "Hawaii", "Idaho", "Illinois", "Indiana", "Iowa",
		"Kansas", "Kentucky", "Louisiana", "Maine", "Maryland", "Massachusetts", "Michigan",
		"Minnesota", "Mississippi", "Missouri", "Montana", "Nebraska", "Nevada", "New Hampshire",
		"New Jersey", "New Mexico", "New York", "North Carolina", "North Dakota", "Ohio",
		"Oklahoma", "Oregon", "Pennsylvania", "Rhode Island", "South Carolina", "South Dakota",
		"Tennessee", "Texas", "Utah", "Vermont", "Virginia", "Washington", "West Virginia",
		"Wisconsin", "Wyoming", "District of Columbia", "Puerto Rico", "Guam",
	}
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[strings.ToLower(n)] = struct{}{}
	}
	return out
}()

// valueRules are tried in order; the first whose match rate reaches the
// threshold names the column.
var valueRules = []valueRule{
	{label: LabelUUID, match: uuidPattern.MatchString},
	{label: LabelEmail, match: emailPattern.MatchString},
	{label: LabelURL, match: urlPattern.MatchString},
	{label: LabelIPv4, match: ipv4Pattern.MatchString},
	{label: LabelIPv6, match: func(s string) bool { return strings.Contains(s, ":") && ipv6Pattern.MatchString(s) }},
	{label: LabelMAC, match: macPattern.MatchString},
	{label: LabelSSN, match: ssnPattern.MatchString},
	{label: LabelCreditCard, match: isCreditCard},
	{label: LabelPhone, match: isPhone},
	{label: LabelPostalCode, match: postalPattern.MatchString, hints: []string{"zip", "postal", "postcode"}},
	{label: LabelUSState, match: isUSState},
	{label: LabelAddress, match: addressPattern.MatchString},
	{
		label: LabelPerson,
		match: personPattern.MatchString,
		hints: []string{"name", "person", "contact", "owner", "officer", "employee", "author", "manager", "agent"},
	},
}

// isPhone requires some punctuation so bare ten-digit integers stay numbers.
func isPhone(s string) bool {
	if !phonePattern.MatchString(s) {
		return false
	}
	return strings.ContainsAny(s, "()-. +")
}

func isUSState(s string) bool {
	_, ok := usStates[strings.ToLower(s)]
	return ok
}

// isCreditCard matches 13 to 19 digit numbers that pass the Luhn checksum.
func isCreditCard(s string) bool {
	if !cardPattern.MatchString(s) {
		return false
	}
	digits := make([]int, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	return luhn(digits)
}

func luhn(digits []int) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func headerMentions(header string, hints []string) bool {
	h := strings.ToLower(header)
	for _, hint := range hints {
		if strings.Contains(h, hint) {
			return true
		}
	}
	return false
}

// matchRate returns the fraction of values accepted by match.
func matchRate(values []string, match func(string) bool) float64 {
	if len(values) == 0 {
		return 0
	}
	n := 0
	for _, v := range values {
		if match(v) {
			n++
		}
	}
	return float64(n) / float64(len(values))
}
