package parser

import (
	"reflect"
	"testing"
)

func TestExtractInlineTags_Boundaries(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    []string
	}{
		{"start of line", "#rust is fine", []string{"rust"}},
		{"after space", "learning #Go today", []string{"go"}},
		{"after paren and bracket", "(#one) [#two]", []string{"one", "two"}},
		{"no boundary", "see issue#123 here", nil},
		{"heading line skipped", "# Heading with #tag\nbody #real", []string{"real"}},
		{"indented heading skipped", "   # Also a heading #x", nil},
		{"case variants collapse", "#Rust and #rust and #RUST", []string{"rust"}},
		{"sorted output", "#zeta #alpha #mid", []string{"alpha", "mid", "zeta"}},
		{"punctuation stops token", "#go, then #c-3po!", []string{"c-3po", "go"}},
	}
	for _, tc := range cases {
		got := ExtractInlineTags(tc.content)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: ExtractInlineTags(%q) = %v, want %v", tc.name, tc.content, got, tc.want)
		}
	}
}

func TestExtractAllTags_Union(t *testing.T) {
	content := "---\ntags:\n  - Projects\n  - rust\n---\nNotes on #Rust and #cli.\n"
	got := ExtractAllTags(content)
	want := []string{"cli", "projects", "rust"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractAllTags = %v, want %v", got, want)
	}
}

func TestExtractAllTags_NoHeader(t *testing.T) {
	got := ExtractAllTags("body with #solo tag")
	if !reflect.DeepEqual(got, []string{"solo"}) {
		t.Errorf("ExtractAllTags = %v, want [solo]", got)
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" #Go ", "go", "", "Rust"})
	if !reflect.DeepEqual(got, []string{"go", "rust"}) {
		t.Errorf("NormalizeTags = %v, want [go rust]", got)
	}
}
