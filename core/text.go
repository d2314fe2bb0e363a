package core

// Excerpt returns at most n runes from the start of text.
// A non-positive n returns text unchanged.
func Excerpt(text string, n int) string {
	if n <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
