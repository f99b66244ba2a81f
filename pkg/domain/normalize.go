// Package domain holds pure value normalization and the national-identifier
// validators shared by handlers and services.
package domain

import "strings"

// OnlyDigits strips everything but ASCII digits. Formatting characters in
// CPF and phone input ("529.982.247-25", "(11) 98765-4321") are caller
// convenience, never stored.
func OnlyDigits(value string) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// NormalizeEmail trims and lowercases so lookups and uniqueness checks agree
// regardless of how the caller typed the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
