package utils

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"
)

var (
	currencyCodeRegex = regexp.MustCompile(`^[A-Za-z]{3}$`)
	controlCharsRegex = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// CurrencyCode accepts three-letter codes in any case
var CurrencyCode = validation.Match(currencyCodeRegex).Error("must be a three-letter currency code")

// MaxAmount is the exclusive upper bound of a claim amount, matching a
// NUMERIC(10,2) column once rounded to cents.
var MaxAmount = decimal.New(1, 8)

// NonNegativeAmount accepts decimal strings from zero up to, but not
// including, MaxAmount after rounding to two places
var NonNegativeAmount = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return errors.New("must be a decimal number")
	}
	if d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
})

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return controlCharsRegex.ReplaceAllString(s, "")
}
