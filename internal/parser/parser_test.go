package parser

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse_HeaderAndBody(t *testing.T) {
	input := "---\ntitle: Hello\ntags:\n  - go\n  - notes\nrating: 5\n---\n# Hello\nBody text.\n"
	fm, body, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fm.Title != "Hello" {
		t.Errorf("title = %q, want %q", fm.Title, "Hello")
	}
	if len(fm.Tags) != 2 || fm.Tags[0] != "go" || fm.Tags[1] != "notes" {
		t.Errorf("tags = %v, want [go notes]", fm.Tags)
	}
	if fm.Extra["rating"] != 5 {
		t.Errorf("extra rating = %v, want 5", fm.Extra["rating"])
	}
	if body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	for _, input := range []string{
		"# Just a heading\nSome text.\n",
		"---\nunterminated: yes\n",
		"--- not a delimiter line\nbody\n",
		"",
	} {
		if _, _, err := Parse(input); !errors.Is(err, ErrNoFrontmatter) {
			t.Errorf("Parse(%q) err = %v, want ErrNoFrontmatter", input, err)
		}
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, _, err := Parse("---\n: invalid: yaml: {{{\n---\nBody\n")
	if err == nil || errors.Is(err, ErrNoFrontmatter) {
		t.Fatalf("err = %v, want decode error", err)
	}
}

func TestParseOrEmpty_NeverFails(t *testing.T) {
	fm, body := ParseOrEmpty("plain body, no header")
	if len(fm.Tags) != 0 || fm.Title != "" {
		t.Errorf("expected empty header, got %+v", fm)
	}
	if body != "plain body, no header" {
		t.Errorf("body = %q", body)
	}

	fm, body = ParseOrEmpty("---\n: bad: {{{\n---\nrest")
	if len(fm.Tags) != 0 {
		t.Errorf("expected empty header on invalid YAML, got %+v", fm)
	}
	if body != "---\n: bad: {{{\n---\nrest" {
		t.Errorf("body = %q, want original content", body)
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	orig := &Frontmatter{
		Tags:   []string{"go", "notes"},
		Title:  "My Note",
		Date:   "2024-03-01",
		Author: "someone",
		Extra:  map[string]any{"rating": 5, "favorite": true},
	}
	head, err := orig.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	fm, body, err := Parse(head + "the body\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if body != "the body\n" {
		t.Errorf("body = %q", body)
	}
	if !reflect.DeepEqual(fm.Tags, orig.Tags) {
		t.Errorf("tags = %v, want %v", fm.Tags, orig.Tags)
	}
	if fm.Title != orig.Title || fm.Date != orig.Date || fm.Author != orig.Author {
		t.Errorf("scalar fields changed: %+v", fm)
	}
	if fm.Extra["rating"] != 5 || fm.Extra["favorite"] != true {
		t.Errorf("extras not preserved: %v", fm.Extra)
	}
}

func TestUpdateTags_CreatesHeader(t *testing.T) {
	out, err := UpdateTags("just a body\n", []string{"B", "#a"})
	if err != nil {
		t.Fatalf("update tags: %v", err)
	}
	fm, body, err := Parse(out)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if !reflect.DeepEqual(fm.Tags, []string{"a", "b"}) {
		t.Errorf("tags = %v, want [a b]", fm.Tags)
	}
	if body != "just a body\n" {
		t.Errorf("body = %q", body)
	}
}

func TestUpdateTags_PreservesExtras(t *testing.T) {
	content := "---\ntitle: T\ncustom: kept\ntags:\n  - old\n---\nbody\n"
	out, err := UpdateTags(content, []string{"new"})
	if err != nil {
		t.Fatalf("update tags: %v", err)
	}
	fm, _, err := Parse(out)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if !reflect.DeepEqual(fm.Tags, []string{"new"}) {
		t.Errorf("tags = %v, want [new]", fm.Tags)
	}
	if fm.Title != "T" || fm.Extra["custom"] != "kept" {
		t.Errorf("header fields lost: %+v", fm)
	}
}

func TestAddRemoveTag(t *testing.T) {
	fm := &Frontmatter{Tags: []string{"alpha"}}
	fm.AddTag("#Beta")
	fm.AddTag("ALPHA")
	if !reflect.DeepEqual(fm.Tags, []string{"alpha", "beta"}) {
		t.Errorf("tags = %v, want [alpha beta]", fm.Tags)
	}
	fm.RemoveTag("Alpha")
	if !reflect.DeepEqual(fm.Tags, []string{"beta"}) {
		t.Errorf("tags = %v, want [beta]", fm.Tags)
	}
}
