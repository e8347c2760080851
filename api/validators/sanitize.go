package validators

// TruncateRunes caps input at maxLen runes. Whitespace is preserved because
// search matching treats it as part of the query.
func TruncateRunes(input string, maxLen int) string {
	if maxLen <= 0 {
		return input
	}
	if runes := []rune(input); len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return input
}
