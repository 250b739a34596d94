package parser

import (
	"regexp"
	"sort"
	"strings"
)

var inlineTagRe = regexp.MustCompile(`(?:^|[\s(\[])#([A-Za-z0-9_-]+)`)

// NormalizeTag lowercases a tag and strips a leading '#' and surrounding
// whitespace.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "#")
	return strings.ToLower(strings.TrimSpace(tag))
}

// NormalizeTags normalizes, deduplicates, and sorts a tag list.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = NormalizeTag(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// ExtractInlineTags returns the lowercased, deduplicated, sorted #tags of
// the content. A tag counts only after a boundary (whitespace, '(', '[',
// or start of line), and heading lines contribute none.
func ExtractInlineTags(content string) []string {
	var raw []string
	for _, line := range strings.Split(content, "\n") {
		if isHeadingLine(line) {
			continue
		}
		for _, m := range inlineTagRe.FindAllStringSubmatch(line, -1) {
			raw = append(raw, m[1])
		}
	}
	return NormalizeTags(raw)
}

// ExtractAllTags unions the frontmatter tag list with the body's inline
// #tags, lowercased, deduplicated, and sorted.
func ExtractAllTags(content string) []string {
	fm, body := ParseOrEmpty(content)
	return NormalizeTags(append(append([]string{}, fm.Tags...), ExtractInlineTags(body)...))
}

// isHeadingLine reports a line whose first non-space character is '#'
// followed by a space.
func isHeadingLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, "# ")
}
