package property

import (
	"reflect"
	"testing"
)

func TestInfer(t *testing.T) {
	cases := []struct {
		raw  string
		want Value
	}{
		{"", Null()},
		{"   ", Null()},
		{"true", Checkbox(true)},
		{"FALSE", Checkbox(false)},
		{"12", Number(12)},
		{"-3.5", Number(-3.5)},
		{"2024-03-01", Date("2024-03-01")},
		{"2024-03-01T10:30", DateTime("2024-03-01T10:30")},
		{"2024-03-01T10:30:59", DateTime("2024-03-01T10:30:59")},
		{"[[Dune]]", Link("Dune")},
		{"[[Dune|the book]]", Link("Dune")},
		{"fantasy, scifi", List([]string{"fantasy", "scifi"})},
		{"[[A]], [[B]]", Links([]string{"A", "B"})},
		{"[[A]], plain", List([]string{"[[A]]", "plain"})},
		{"Novalands", Text("Novalands")},
		{"12 hours", Text("12 hours")},
		{"1e5", Text("1e5")},
	}
	for _, tc := range cases {
		got := Infer(tc.raw)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Infer(%q) = %+v, want %+v", tc.raw, got, tc.want)
		}
	}
}

func TestValueString(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Number(12), "12"},
		{Number(12.5), "12.50"},
		{Checkbox(true), "true"},
		{List([]string{"a", "b"}), "a, b"},
		{Null(), ""},
		{Text("hi"), "hi"},
		{Link("Dune"), "Dune"},
	}
	for _, tc := range cases {
		if got := tc.v.String(); got != tc.want {
			t.Errorf("%+v.String() = %q, want %q", tc.v, got, tc.want)
		}
	}
}

func TestSortKeyOrder(t *testing.T) {
	if !(Number(-5).SortKey() < Number(3).SortKey()) {
		t.Error("negative number should sort before positive")
	}
	if !(Number(3).SortKey() < Number(20).SortKey()) {
		t.Error("3 should sort before 20")
	}
	if !(Checkbox(false).SortKey() < Checkbox(true).SortKey()) {
		t.Error("false should sort before true")
	}
	if Text("Apple").SortKey() != "apple" {
		t.Errorf("text sort key should be lowercased, got %q", Text("Apple").SortKey())
	}
	if List([]string{"Beta", "alpha"}).SortKey() != "beta" {
		t.Error("list sorts by first element")
	}
}

func TestIsEmpty(t *testing.T) {
	empties := []Value{Null(), Text(""), List(nil), Tags(nil), Link("")}
	for _, v := range empties {
		if !v.IsEmpty() {
			t.Errorf("%+v should be empty", v)
		}
	}
	filled := []Value{Text("x"), Number(0), Checkbox(false), List([]string{"a"})}
	for _, v := range filled {
		if v.IsEmpty() {
			t.Errorf("%+v should not be empty", v)
		}
	}
}

func TestAsNumber(t *testing.T) {
	if n, ok := Number(4.5).AsNumber(); !ok || n != 4.5 {
		t.Errorf("Number(4.5).AsNumber() = %v, %v", n, ok)
	}
	if n, ok := Text(" 12 ").AsNumber(); !ok || n != 12 {
		t.Errorf("Text(12).AsNumber() = %v, %v", n, ok)
	}
	if _, ok := Text("abc").AsNumber(); ok {
		t.Error("non-numeric text should not coerce")
	}
	if _, ok := Checkbox(true).AsNumber(); ok {
		t.Error("checkbox should not coerce")
	}
}
