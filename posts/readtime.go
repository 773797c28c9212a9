package posts

import "strings"

const wordsPerMinute = 200

// EstimateReadTime returns the reading time for content in whole minutes,
// rounding up. Words are whitespace-delimited tokens. The result is never
// below one minute, even for empty content.
func EstimateReadTime(content string) int {
	words := len(strings.Fields(content))
	if words <= wordsPerMinute {
		return 1
	}
	return (words + wordsPerMinute - 1) / wordsPerMinute
}
