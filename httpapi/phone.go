package httpapi

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var errInvalidPhone = errors.New("invalid phone number")

// DefaultPhoneRegions are tried in order for numbers without a country prefix.
var DefaultPhoneRegions = []string{"US", "GB", "DE"}

// normalizePhone parses raw against each region and returns the first valid number in E.164 form.
func normalizePhone(raw string, regions []string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errInvalidPhone
	}

	for _, region := range regions {
		num, err := phonenumbers.Parse(raw, region)
		if err != nil {
			continue
		}

		if phonenumbers.IsValidNumber(num) {
			return phonenumbers.Format(num, phonenumbers.E164), nil
		}
	}

	return "", errInvalidPhone
}
