package payment

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidPhone is returned for numbers that are not Tanzanian mobile numbers.
var ErrInvalidPhone = errors.New("phone must be a Tanzanian mobile number (07XXXXXXXX, 06XXXXXXXX or +255...)")

var (
	localPhone = regexp.MustCompile(`^0([67]\d{8})$`)
	intlPhone  = regexp.MustCompile(`^\+?255([67]\d{8})$`)
	phoneNoise = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// NormalizePhone accepts 0[67]XXXXXXXX, +255[67]XXXXXXXX and 255[67]XXXXXXXX
// (spaces and dashes ignored) and returns the 255XXXXXXXXX form.
func NormalizePhone(raw string) (string, error) {
	s := phoneNoise.Replace(strings.TrimSpace(raw))
	if m := localPhone.FindStringSubmatch(s); m != nil {
		return "255" + m[1], nil
	}
	if m := intlPhone.FindStringSubmatch(s); m != nil {
		return "255" + m[1], nil
	}
	return "", ErrInvalidPhone
}
