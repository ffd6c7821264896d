package domain

import "strings"

// NormalizeAccount returns the lowercase form of an account address.
// Providers may return checksummed addresses; the session only ever stores
// the lowercase form.
func NormalizeAccount(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// FirstAccount returns the normalized first entry of an account list, or ""
// when the list is empty.
func FirstAccount(accounts []string) string {
	if len(accounts) == 0 {
		return ""
	}
	return NormalizeAccount(accounts[0])
}
