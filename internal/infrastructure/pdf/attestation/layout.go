package attestation

import "strings"

// wrapText splits text into lines that fit maxWidth according to the
// given width measure. Words longer than the full width are broken
// rune by rune so nothing ever overflows the page edge.
func wrapText(measure func(string) float64, text string, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := ""
	flush := func() {
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
	}

	for _, word := range words {
		for measure(word) > maxWidth {
			flush()
			runes := []rune(word)
			cut := len(runes)
			for cut > 1 && measure(string(runes[:cut])) > maxWidth {
				cut--
			}
			lines = append(lines, string(runes[:cut]))
			word = string(runes[cut:])
		}
		if word == "" {
			continue
		}
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if current == "" || measure(candidate) <= maxWidth {
			current = candidate
			continue
		}
		flush()
		current = word
	}
	flush()
	return lines
}
