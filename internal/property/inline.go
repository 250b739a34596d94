package property

import (
	"regexp"
	"strings"
)

// Property is one occurrence of key::value inside a note body.
type Property struct {
	Key   string
	Value Value
	// Raw is the trimmed source text of the value.
	Raw string
	// Line is the 0-based line number in the full file.
	Line int
	// CharStart and CharEnd are byte offsets of the whole bracket group,
	// half-open, so content[CharStart:CharEnd] is the bracket substring.
	CharStart int
	CharEnd   int
	// GroupID is set iff the property came from a comma-separated bracket
	// group. Ids are allocated fresh on every parse, starting at 1.
	GroupID *int64
}

var (
	keyRe     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)
	headingRe = regexp.MustCompile("^\\s*#{1,6} ")
)

// ParseInline scans a note for [key::value] and [k1::v1, k2::v2, ...]
// productions. Heading lines, fenced code blocks, and the frontmatter
// region contribute nothing. A comma inside a value that is not itself a
// valid pair extends the previous value; there is no escape syntax, so a
// literal ']' cannot appear in a value outside a [[wikilink]].
func ParseInline(content string) []Property {
	var (
		props     []Property
		nextGroup int64
	)
	fmEnd := frontmatterEnd(content)
	offset := 0
	inFence := false
	for lineNo, line := range strings.Split(content, "\n") {
		lineStart := offset
		offset += len(line) + 1
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence || lineStart < fmEnd || headingRe.MatchString(line) {
			continue
		}
		props = parseLine(props, line, lineNo, lineStart, &nextGroup)
	}
	return props
}

func parseLine(props []Property, line string, lineNo, lineStart int, nextGroup *int64) []Property {
	i := 0
	for i < len(line) {
		if line[i] != '[' {
			i++
			continue
		}
		if i+1 < len(line) && line[i+1] == '[' {
			// Wikilink outside a group, opaque.
			rel := strings.Index(line[i+2:], "]]")
			if rel < 0 {
				break
			}
			i += 2 + rel + 2
			continue
		}
		end, segs := scanGroup(line, i)
		if end < 0 {
			i++
			continue
		}
		pairs, ok := buildPairs(segs)
		if !ok {
			i = end
			continue
		}
		var gid *int64
		if len(pairs) > 1 {
			(*nextGroup)++
			id := *nextGroup
			gid = &id
		}
		for _, p := range pairs {
			props = append(props, Property{
				Key:       p.key,
				Value:     Infer(p.val),
				Raw:       p.val,
				Line:      lineNo,
				CharStart: lineStart + i,
				CharEnd:   lineStart + end,
				GroupID:   gid,
			})
		}
		i = end
	}
	return props
}

// scanGroup collects the top-level comma-separated segments of a bracket
// group starting at the '[' at index start. Returns the index just past the
// closing ']' or -1 when the group never closes on this line.
func scanGroup(line string, start int) (int, []string) {
	var segs []string
	segStart := start + 1
	i := start + 1
	for i < len(line) {
		if line[i] == '[' && i+1 < len(line) && line[i+1] == '[' {
			rel := strings.Index(line[i+2:], "]]")
			if rel < 0 {
				return -1, nil
			}
			i += 2 + rel + 2
			continue
		}
		switch line[i] {
		case ']':
			segs = append(segs, line[segStart:i])
			return i + 1, segs
		case ',':
			segs = append(segs, line[segStart:i])
			segStart = i + 1
		}
		i++
	}
	return -1, nil
}

type rawPair struct {
	key string
	val string
}

// buildPairs turns raw segments into key/value pairs. The first segment
// must be a valid pair or the whole bracket is not a property group;
// later segments without a key extend the preceding value.
func buildPairs(segs []string) ([]rawPair, bool) {
	var pairs []rawPair
	for _, seg := range segs {
		if key, val, ok := splitPair(seg); ok {
			pairs = append(pairs, rawPair{key: key, val: val})
			continue
		}
		if len(pairs) == 0 {
			return nil, false
		}
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		last := &pairs[len(pairs)-1]
		if last.val == "" {
			last.val = seg
		} else {
			last.val += ", " + seg
		}
	}
	return pairs, len(pairs) > 0
}

func splitPair(seg string) (string, string, bool) {
	idx := strings.Index(seg, "::")
	if idx < 0 {
		return "", "", false
	}
	key := strings.TrimSpace(seg[:idx])
	if !keyRe.MatchString(key) {
		return "", "", false
	}
	return key, strings.TrimSpace(seg[idx+2:]), true
}

// frontmatterEnd returns the byte offset just past the closing delimiter
// line of a leading YAML header, or 0 when the file has none.
func frontmatterEnd(content string) int {
	rest, ok := strings.CutPrefix(content, "---")
	if !ok {
		return 0
	}
	if !strings.HasPrefix(rest, "\n") && !strings.HasPrefix(rest, "\r\n") {
		return 0
	}
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return 0
	}
	end := 3 + idx + len("\n---")
	if nl := strings.Index(content[end:], "\n"); nl >= 0 {
		return end + nl + 1
	}
	return len(content)
}
