// Package phone normalizes free-form phone numbers to E.164.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers written without a country prefix.
const DefaultRegion = "IR"

// Normalize returns the E.164 form of raw. Numbers that cannot be parsed or
// are not valid for their region are returned trimmed but otherwise unchanged.
func Normalize(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if region == "" {
		region = DefaultRegion
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// Valid reports whether raw parses to a valid number.
func Valid(raw, region string) bool {
	if region == "" {
		region = DefaultRegion
	}
	num, err := phonenumbers.Parse(strings.TrimSpace(raw), region)
	return err == nil && phonenumbers.IsValidNumber(num)
}
