package models

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeName upper-cases the first rune of s and leaves the rest untouched.
// Used for ingredient and recipe names: "oignon" -> "Oignon", "" -> "".
func NormalizeName(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return s
	}
	return string(upper) + s[size:]
}

// SearchKey is the form names are compared in when searching.
func SearchKey(s string) string {
	return strings.ToLower(s)
}

// NormalizeTag lower-cases the whole tag.
func NormalizeTag(s string) string {
	return strings.ToLower(s)
}
