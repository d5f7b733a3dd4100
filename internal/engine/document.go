package engine

import "regexp"

// Identification documents are 7 to 12 digit runs, optionally
// announced with a document keyword.
var documentRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:cedula|cédula|documento|cc)\s*:?\s*(\d{7,12})`),
	regexp.MustCompile(`\b(\d{7,12})\b`),
}

// ExtractDocument finds the first plausible identification number in
// the message. Runs of a single repeated digit are rejected as noise.
func ExtractDocument(text string) string {
	for _, re := range documentRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			candidate := m[1]
			if distinctDigits(candidate) > 1 {
				return candidate
			}
		}
	}
	return ""
}

func distinctDigits(s string) int {
	var seen [10]bool
	n := 0
	for _, c := range s {
		d := c - '0'
		if d < 10 && !seen[d] {
			seen[d] = true
			n++
		}
	}
	return n
}
