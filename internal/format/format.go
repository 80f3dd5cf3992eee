// Package format holds the input pre-formatting shared by every form.
// Nothing here rejects input: the backend owns validation.
package format

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	maxDNIDigits   = 8
	maxPhoneDigits = 10
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func v() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Digits drops every non-digit rune.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DNI groups the digits of a national id by thousands: 12345678 -> 12.345.678.
func DNI(raw string) string {
	digits := Digits(raw)
	if len(digits) > maxDNIDigits {
		digits = digits[:maxDNIDigits]
	}
	if len(digits) <= 3 {
		return digits
	}

	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	return strings.Join(groups, ".")
}

// Phone renders up to ten digits progressively as XXX-XXX-XXXX.
func Phone(raw string) string {
	digits := Digits(raw)
	if len(digits) > maxPhoneDigits {
		digits = digits[:maxPhoneDigits]
	}

	switch {
	case len(digits) <= 3:
		return digits
	case len(digits) <= 6:
		return digits[:3] + "-" + digits[3:]
	default:
		return digits[:3] + "-" + digits[3:6] + "-" + digits[6:]
	}
}

// IsPhone reports whether s already has the complete XXX-XXX-XXXX shape.
func IsPhone(s string) bool {
	if len(s) != 12 || s[3] != '-' || s[7] != '-' {
		return false
	}
	return len(Digits(s)) == maxPhoneDigits
}

// EmailHint returns a hint for values that do not look like an email address.
// Empty input yields no hint.
func EmailHint(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if err := v().Var(s, "email"); err != nil {
		return "El correo no parece válido (ejemplo: nombre@dominio.gob)."
	}
	return ""
}

// PhoneHint returns a hint when a non-empty phone is not complete.
func PhoneHint(s string) string {
	if strings.TrimSpace(s) == "" || IsPhone(s) {
		return ""
	}
	return "Formato esperado: XXX-XXX-XXXX."
}

// Date turns YYYY-MM-DD (optionally followed by a time) into DD/MM/YYYY.
// Anything else is returned unchanged.
func Date(s string) string {
	if len(s) < 10 || s[4] != '-' || s[7] != '-' {
		return s
	}
	return s[8:10] + "/" + s[5:7] + "/" + s[0:4]
}

// Time trims HH:MM:SS to HH:MM.
func Time(s string) string {
	if len(s) == 8 && s[2] == ':' && s[5] == ':' {
		return s[:5]
	}
	return s
}
