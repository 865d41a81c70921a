package highlight

import (
	"regexp"
	"strconv"
	"strings"
)

type lineMark struct {
	highlighted bool
	add         bool
	remove      bool
	focused     bool
	words       []string
}

func (m lineMark) class() string {
	class := "line"
	if m.highlighted {
		class += " highlighted"
	}
	if m.add {
		class += " diff add"
	}
	if m.remove {
		class += " diff remove"
	}
	if m.focused {
		class += " focused"
	}
	return class
}

// Trailing comment forms that may carry a [!code ...] notation.
var notationComments = []*regexp.Regexp{
	regexp.MustCompile(`\s*\{/\*\s*\[!code\s+([^\]]+)\]\s*\*/\}\s*$`),
	regexp.MustCompile(`\s*/\*\s*\[!code\s+([^\]]+)\]\s*\*/\s*$`),
	regexp.MustCompile(`\s*<!--\s*\[!code\s+([^\]]+)\]\s*-->\s*$`),
	regexp.MustCompile(`\s*(?://|#|--|;)\s*\[!code\s+([^\]]+)\]\s*$`),
}

var (
	countedNotation = regexp.MustCompile(`^(focus|highlight|hl)(?::(\d+))?$`)
	wordNotation    = regexp.MustCompile(`^word:(.+?)(?::(\d+))?$`)
)

type notation struct {
	family string
	apply  func(*lineMark)
	count  int
}

func parseNotation(body string) (notation, bool) {
	body = strings.TrimSpace(body)
	switch body {
	case "++":
		return notation{family: FamilyDiff, count: 1, apply: func(m *lineMark) { m.add = true }}, true
	case "--":
		return notation{family: FamilyDiff, count: 1, apply: func(m *lineMark) { m.remove = true }}, true
	}
	if m := countedNotation.FindStringSubmatch(body); m != nil {
		n := notation{count: count(m[2])}
		if m[1] == "focus" {
			n.family = FamilyFocus
			n.apply = func(lm *lineMark) { lm.focused = true }
		} else {
			n.family = FamilyHighlight
			n.apply = func(lm *lineMark) { lm.highlighted = true }
		}
		return n, true
	}
	if m := wordNotation.FindStringSubmatch(body); m != nil {
		word := m[1]
		return notation{family: FamilyWord, count: count(m[2]), apply: func(lm *lineMark) {
			lm.words = append(lm.words, word)
		}}, true
	}
	return notation{}, false
}

func count(s string) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return 1
}

// extract strips the enabled trailing notation comments from line.
func (h *Highlighter) extract(line string) (string, []notation) {
	var found []notation
	for {
		matched := false
		for _, re := range notationComments {
			loc := re.FindStringSubmatchIndex(line)
			if loc == nil {
				continue
			}
			n, ok := parseNotation(line[loc[2]:loc[3]])
			if !ok || !h.families[n.family] {
				continue
			}
			found = append([]notation{n}, found...)
			line = line[:loc[0]]
			matched = true
			break
		}
		if !matched {
			return line, found
		}
	}
}

// notations removes notation comments and returns the remaining lines
// with their marks. A line holding only notations is dropped and its
// notations apply to the lines that follow it.
func (h *Highlighter) notations(in []string) ([]string, []lineMark) {
	out := make([]string, 0, len(in))
	marks := make([]lineMark, 0, len(in))
	var carry []notation
	for _, raw := range in {
		line, found := h.extract(raw)
		if len(found) > 0 && strings.TrimSpace(line) == "" {
			carry = append(carry, found...)
			continue
		}
		var mark lineMark
		var next []notation
		for _, n := range carry {
			n.apply(&mark)
			if n.count--; n.count > 0 {
				next = append(next, n)
			}
		}
		for _, n := range found {
			n.apply(&mark)
			if n.count--; n.count > 0 {
				next = append(next, n)
			}
		}
		carry = next
		out = append(out, line)
		marks = append(marks, mark)
	}
	return out, marks
}

var (
	metaRanges = regexp.MustCompile(`\{([\d\s,\-]+)\}`)
	metaWord   = regexp.MustCompile(`(?:^|\s)/((?:\\/|[^/])+)/`)
)

// ParseMeta reads the line ranges ("{1,3-4}") and words ("/word/") of a
// fence meta string. Line numbers are 1-based; numbers outside
// [1, lineCount] are dropped.
func ParseMeta(meta string, lineCount int) (lines []int, words []string) {
	for _, m := range metaRanges.FindAllStringSubmatch(meta, -1) {
		for _, part := range strings.Split(m[1], ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			lo, hi, isRange := strings.Cut(part, "-")
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				continue
			}
			end := start
			if isRange {
				if end, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
					continue
				}
			}
			start, end = max(start, 1), min(end, lineCount)
			for n := start; n <= end; n++ {
				lines = append(lines, n)
			}
		}
	}
	for _, m := range metaWord.FindAllStringSubmatch(meta, -1) {
		words = append(words, strings.ReplaceAll(m[1], `\/`, "/"))
	}
	return lines, words
}
