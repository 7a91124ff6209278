package layout

import "strings"

// Ellipsis is appended to text cut to fit a width.
const Ellipsis = "..."

// WrapTwoLines greedily fills a first line to maxWidth and puts the rest on a
// second line, ellipsized when it still overflows. No line exceeds maxWidth.
// Empty text yields the placeholder.
func WrapTwoLines(m Measurer, f Font, text string, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{Placeholder}
	}

	line := ""
	for i, w := range words {
		try := w
		if line != "" {
			try = line + " " + w
		}
		if m.Measure(try, f) <= maxWidth {
			line = try
			continue
		}
		rest := strings.Join(words[i:], " ")
		if line == "" {
			// a single word wider than the line is split by characters
			line, rest = splitRunes(m, f, rest, maxWidth)
		}
		return []string{line, Ellipsize(m, f, rest, maxWidth)}
	}
	return []string{line}
}

// splitRunes returns the longest prefix of s that fits maxWidth and the remainder.
func splitRunes(m Measurer, f Font, s string, maxWidth float64) (string, string) {
	runes := []rune(s)
	n := 0
	for n < len(runes) && m.Measure(string(runes[:n+1]), f) <= maxWidth {
		n++
	}
	if n == 0 {
		n = 1
	}
	return string(runes[:n]), strings.TrimLeft(string(runes[n:]), " ")
}

// Ellipsize trims s by characters until s plus the ellipsis fits maxWidth.
func Ellipsize(m Measurer, f Font, s string, maxWidth float64) string {
	if m.Measure(s, f) <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && m.Measure(string(runes)+Ellipsis, f) > maxWidth {
		runes = runes[:len(runes)-1]
	}
	return strings.TrimRight(string(runes), " ") + Ellipsis
}

// WrapLines greedily breaks text into lines no wider than maxWidth. A word
// wider than maxWidth gets a line of its own.
func WrapLines(m Measurer, f Font, text string, maxWidth float64) []string {
	var lines []string
	line := ""
	for _, w := range strings.Fields(text) {
		try := w
		if line != "" {
			try = line + " " + w
		}
		if m.Measure(try, f) <= maxWidth {
			line = try
			continue
		}
		if line != "" {
			lines = append(lines, line)
		}
		line = w
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
