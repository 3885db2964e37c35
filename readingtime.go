package spacetraveling

import "strings"

// WordsPerMinute is the assumed reading speed.
const WordsPerMinute = 200

// WordCount returns the number of whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// ContentWordCount sums the words of every heading and body in content.
// Bodies are counted on their plain-text form.
func ContentWordCount(content []Content) int {
	total := 0
	for _, c := range content {
		total += WordCount(c.Heading) + WordCount(c.Body.Text(" "))
	}
	return total
}

// ReadingTime estimates the minutes needed to read content, rounding up.
// Empty content reads in zero minutes.
func ReadingTime(content []Content) int {
	return MinutesFor(ContentWordCount(content))
}

// MinutesFor converts a word count to whole minutes, rounding up.
func MinutesFor(words int) int {
	if words <= 0 {
		return 0
	}
	return (words + WordsPerMinute - 1) / WordsPerMinute
}
