package enhancer

import (
	"regexp"
	"strings"
)

// leadingEmphasisRE matches markdown emphasis markers at the start of a line:
// runs of '*' or '_' (e.g. "**Bold:" or "*item"), optionally after list
// bullets have been left intact.
var leadingEmphasisRE = regexp.MustCompile(`^[*_]+\s*`)

// SanitizeReply normalizes model output for display:
//   - converts CRLF/CR line endings to LF,
//   - strips leading emphasis markers from each line,
//   - collapses runs of two or more blank lines into exactly one blank line,
//   - trims surrounding whitespace.
func SanitizeReply(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blankRun := 0
	for _, ln := range lines {
		ln = leadingEmphasisRE.ReplaceAllString(ln, "")
		if strings.TrimSpace(ln) == "" {
			blankRun++
			// Collapse any run of blank lines to a single one.
			if blankRun == 1 {
				out = append(out, "")
			}
			continue
		}
		blankRun = 0
		out = append(out, strings.TrimRight(ln, " \t"))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
