// Package trimmer removes boilerplate and redundant whitespace from
// canonical text. Trimming is conservative: only clearly repeated or
// pattern-matched lines are dropped, and paragraph boundaries and page
// markers always survive. Trim is idempotent.
package trimmer

import (
	"regexp"
	"strings"
)

var (
	pageMarkerRe = regexp.MustCompile(`^\[Page \d+\]$`)
	sheetRe      = regexp.MustCompile(`^# Sheet: `)

	// defaultPatterns match lines that are boilerplate wherever they appear.
	defaultPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*page\s+\d+\s+of\s+\d+\s*$`),
		regexp.MustCompile(`^\s*(?:https?://|www\.)\S+\s*$`),
	}

	wsRun = regexp.MustCompile(`[ \t\x{00A0}]+`)
)

// repeatThreshold is how many page-boundary occurrences a line needs before
// it is treated as a running header or footer.
const repeatThreshold = 3

// Trimmer strips boilerplate according to its pattern list.
type Trimmer struct {
	patterns []*regexp.Regexp
}

// New returns a Trimmer with the default patterns plus any extras.
func New(extra ...*regexp.Regexp) *Trimmer {
	return &Trimmer{patterns: append(append([]*regexp.Regexp{}, defaultPatterns...), extra...)}
}

// Trim normalizes whitespace, removes boilerplate lines, and drops adjacent
// duplicate paragraphs. trim(trim(x)) == trim(x).
func (t *Trimmer) Trim(text string) string {
	lines := strings.Split(text, "\n")

	// Pass 1: collapse intra-line whitespace runs; paragraph breaks (blank
	// lines) are left alone.
	for i, ln := range lines {
		lines[i] = strings.TrimRight(wsRun.ReplaceAllString(ln, " "), " ")
	}

	headers := t.repeatedBoundaryLines(lines)

	// Pass 2: drop boilerplate lines. Page markers and sheet banners are
	// structural and never removed.
	kept := lines[:0]
	for _, ln := range lines {
		if isStructural(ln) {
			kept = append(kept, ln)
			continue
		}
		if t.isBoilerplate(ln) || headers[strings.TrimSpace(ln)] {
			continue
		}
		kept = append(kept, ln)
	}

	// Pass 3: collapse blank-line runs to single paragraph breaks, then drop
	// paragraphs that exactly repeat their predecessor.
	paras := splitParagraphs(kept)
	out := paras[:0]
	for i, p := range paras {
		if i > 0 && p == paras[i-1] {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, "\n\n")
}

func (t *Trimmer) isBoilerplate(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	for _, re := range t.patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func isStructural(line string) bool {
	s := strings.TrimSpace(line)
	return pageMarkerRe.MatchString(s) || sheetRe.MatchString(s)
}

// repeatedBoundaryLines finds non-structural lines adjacent to page markers
// that recur at least repeatThreshold times: running headers and footers
// re-emitted by PDF extraction on every page.
func (t *Trimmer) repeatedBoundaryLines(lines []string) map[string]bool {
	counts := make(map[string]int)
	for i, ln := range lines {
		if !pageMarkerRe.MatchString(strings.TrimSpace(ln)) {
			continue
		}
		for _, j := range []int{nextContent(lines, i, +1), nextContent(lines, i, -1)} {
			if j < 0 {
				continue
			}
			s := strings.TrimSpace(lines[j])
			if s != "" && !isStructural(lines[j]) {
				counts[s]++
			}
		}
	}
	out := make(map[string]bool)
	for s, n := range counts {
		if n >= repeatThreshold {
			out[s] = true
		}
	}
	return out
}

// nextContent scans from i in direction dir for the nearest non-blank line.
func nextContent(lines []string, i, dir int) int {
	for j := i + dir; j >= 0 && j < len(lines); j += dir {
		if strings.TrimSpace(lines[j]) != "" {
			return j
		}
	}
	return -1
}

func splitParagraphs(lines []string) []string {
	var paras []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			paras = append(paras, strings.Join(cur, "\n"))
			cur = cur[:0]
		}
	}
	for _, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			flush()
			continue
		}
		cur = append(cur, ln)
	}
	flush()
	return paras
}
