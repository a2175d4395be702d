package service

import "strings"

// NormalizeLabel trims and lowercases raw user input and validates it as a
// single DNS label: 1-63 characters, letters/digits/hyphens, no leading or
// trailing hyphen, no dots.
func NormalizeLabel(raw string) (string, error) {
	label := strings.ToLower(strings.TrimSpace(raw))
	if label == "" || len(label) > 63 {
		return "", ErrInvalidLabel
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return "", ErrInvalidLabel
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return "", ErrInvalidLabel
		}
	}
	return label, nil
}
