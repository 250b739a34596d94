// Package parser extracts YAML frontmatter and tags from Markdown notes.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoFrontmatter reports content without a ----delimited header.
var ErrNoFrontmatter = errors.New("parser: no frontmatter")

// Frontmatter is the structured YAML header of a note. Fields the engine
// does not understand are kept in Extra so a round-trip preserves them.
type Frontmatter struct {
	Tags   []string       `yaml:"tags,omitempty"`
	Title  string         `yaml:"title,omitempty"`
	Date   string         `yaml:"date,omitempty"`
	Author string         `yaml:"author,omitempty"`
	Extra  map[string]any `yaml:",inline"`
}

// Parse splits content into a decoded header and the remaining body.
// A header is present iff the content begins with a `---` line and a later
// `---` delimiter line exists. Returns ErrNoFrontmatter when absent and a
// wrapped decode error when the YAML between the delimiters is invalid.
func Parse(content string) (*Frontmatter, string, error) {
	block, body, ok := splitHeader(content)
	if !ok {
		return nil, "", ErrNoFrontmatter
	}
	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return nil, "", fmt.Errorf("parser: decode frontmatter: %w", err)
	}
	return &fm, body, nil
}

// ParseOrEmpty never fails: absence or invalidity of the header yields an
// empty Frontmatter and the original content as body.
func ParseOrEmpty(content string) (*Frontmatter, string) {
	fm, body, err := Parse(content)
	if err != nil {
		return &Frontmatter{}, content
	}
	return fm, body
}

// splitHeader returns the raw YAML block and the body following the closing
// delimiter line.
func splitHeader(content string) (string, string, bool) {
	after, ok := strings.CutPrefix(content, "---")
	if !ok {
		return "", "", false
	}
	// The opening delimiter must be a whole line.
	if !strings.HasPrefix(after, "\n") && !strings.HasPrefix(after, "\r\n") {
		return "", "", false
	}
	idx := strings.Index(after, "\n---")
	if idx < 0 {
		return "", "", false
	}
	block := after[:idx+1]
	rest := after[idx+len("\n---"):]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		rest = ""
	}
	return block, rest, true
}

// Serialize renders the header back to a ----delimited YAML block.
// Round-tripping through Parse preserves tags, title, date, author, and
// every extra field.
func (f *Frontmatter) Serialize() (string, error) {
	out, err := yaml.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("parser: encode frontmatter: %w", err)
	}
	return "---\n" + string(out) + "---\n", nil
}

// ToMarkdown reassembles a full note from a header and body.
func ToMarkdown(f *Frontmatter, body string) (string, error) {
	head, err := f.Serialize()
	if err != nil {
		return "", err
	}
	if body == "" {
		return head, nil
	}
	return head + body, nil
}

// UpdateTags rewrites the tag list of a note's header, creating the header
// when the note has none. The body is left untouched.
func UpdateTags(content string, tags []string) (string, error) {
	fm, body := ParseOrEmpty(content)
	fm.Tags = NormalizeTags(tags)
	return ToMarkdown(fm, body)
}

// AddTag adds a tag to the header if not already present (case-insensitive).
func (f *Frontmatter) AddTag(tag string) {
	tag = NormalizeTag(tag)
	if tag == "" {
		return
	}
	for _, t := range f.Tags {
		if strings.EqualFold(t, tag) {
			return
		}
	}
	f.Tags = append(f.Tags, tag)
}

// RemoveTag drops a tag from the header (case-insensitive).
func (f *Frontmatter) RemoveTag(tag string) {
	tag = NormalizeTag(tag)
	out := f.Tags[:0]
	for _, t := range f.Tags {
		if !strings.EqualFold(t, tag) {
			out = append(out, t)
		}
	}
	f.Tags = out
}
