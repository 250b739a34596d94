package property

import (
	"strings"
	"testing"
)

func TestParseInline_Single(t *testing.T) {
	content := "Bought [precio::25.5] yesterday.\n"
	props := ParseInline(content)
	if len(props) != 1 {
		t.Fatalf("len(props) = %d, want 1", len(props))
	}
	p := props[0]
	if p.Key != "precio" || p.Value.Kind != KindNumber || p.Value.Number != 25.5 {
		t.Errorf("prop = %+v", p)
	}
	if p.GroupID != nil {
		t.Error("single production must not carry a group id")
	}
	if p.Line != 0 {
		t.Errorf("line = %d, want 0", p.Line)
	}
	if got := content[p.CharStart:p.CharEnd]; got != "[precio::25.5]" {
		t.Errorf("span = %q", got)
	}
}

func TestParseInline_Group(t *testing.T) {
	content := "x\n[juego::Novalands, horas::12]\n"
	props := ParseInline(content)
	if len(props) != 2 {
		t.Fatalf("len(props) = %d, want 2", len(props))
	}
	if props[0].GroupID == nil || props[1].GroupID == nil {
		t.Fatal("grouped properties must share a group id")
	}
	if *props[0].GroupID != *props[1].GroupID {
		t.Error("group ids differ within one bracket group")
	}
	if props[0].Key != "juego" || props[0].Value.Text != "Novalands" {
		t.Errorf("first = %+v", props[0])
	}
	if props[1].Key != "horas" || props[1].Value.Number != 12 {
		t.Errorf("second = %+v", props[1])
	}
	for _, p := range props {
		if p.Line != 1 {
			t.Errorf("line = %d, want 1", p.Line)
		}
		if got := content[p.CharStart:p.CharEnd]; got != "[juego::Novalands, horas::12]" {
			t.Errorf("span = %q", got)
		}
	}
}

func TestParseInline_DistinctGroups(t *testing.T) {
	content := "[a::1, b::2] and [a::1, b::2]\n[c::3]\n"
	props := ParseInline(content)
	if len(props) != 5 {
		t.Fatalf("len(props) = %d, want 5", len(props))
	}
	if *props[0].GroupID == *props[2].GroupID {
		t.Error("separate bracket groups must get distinct ids")
	}
	if props[4].GroupID != nil {
		t.Error("trailing single must be ungrouped")
	}
}

func TestParseInline_ListValue(t *testing.T) {
	props := ParseInline("[genres::fantasy, scifi, drama]\n")
	if len(props) != 1 {
		t.Fatalf("len(props) = %d, want 1: %+v", len(props), props)
	}
	p := props[0]
	if p.Value.Kind != KindList {
		t.Fatalf("kind = %v, want list", p.Value.Kind)
	}
	if len(p.Value.Items) != 3 || p.Value.Items[2] != "drama" {
		t.Errorf("items = %v", p.Value.Items)
	}
	if p.GroupID != nil {
		t.Error("a list value is still a single production")
	}
}

func TestParseInline_WikilinkValues(t *testing.T) {
	content := "[libro::[[Dune]]] and [refs::[[A]], [[B]]]\n"
	props := ParseInline(content)
	if len(props) != 2 {
		t.Fatalf("len(props) = %d, want 2: %+v", len(props), props)
	}
	if props[0].Value.Kind != KindLink || props[0].Value.Text != "Dune" {
		t.Errorf("link prop = %+v", props[0])
	}
	if props[1].Value.Kind != KindLinks || len(props[1].Value.Items) != 2 {
		t.Errorf("links prop = %+v", props[1])
	}
	if got := content[props[0].CharStart:props[0].CharEnd]; got != "[libro::[[Dune]]]" {
		t.Errorf("span = %q", got)
	}
}

func TestParseInline_Exclusions(t *testing.T) {
	content := strings.Join([]string{
		"---",
		"title: [skip::me]",
		"---",
		"# Heading [nope::1]",
		"```",
		"[code::2]",
		"```",
		"[real::3]",
		"plain [[Wikilink]] and [link](url) and - [ ] task",
	}, "\n") + "\n"
	props := ParseInline(content)
	if len(props) != 1 {
		t.Fatalf("len(props) = %d, want 1: %+v", len(props), props)
	}
	if props[0].Key != "real" || props[0].Line != 7 {
		t.Errorf("prop = %+v", props[0])
	}
}

func TestParseInline_ContinuationSegment(t *testing.T) {
	props := ParseInline("[a::one, two, b::3]\n")
	if len(props) != 2 {
		t.Fatalf("len(props) = %d, want 2: %+v", len(props), props)
	}
	if props[0].Raw != "one, two" {
		t.Errorf("raw = %q, want %q", props[0].Raw, "one, two")
	}
	if props[0].Value.Kind != KindList {
		t.Errorf("kind = %v, want list", props[0].Value.Kind)
	}
	if props[1].Key != "b" || props[1].Value.Number != 3 {
		t.Errorf("second = %+v", props[1])
	}
}

func TestParseInline_InvalidBrackets(t *testing.T) {
	for _, content := range []string{
		"[no pairs here]\n",
		"[bad key!::v]\n",
		"[unterminated::v\n",
		"[]\n",
		"[::v]\n",
	} {
		if props := ParseInline(content); len(props) != 0 {
			t.Errorf("ParseInline(%q) = %+v, want none", content, props)
		}
	}
}
