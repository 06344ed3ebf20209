package bot

import (
	"reflect"
	"testing"
)

func TestSplitArgs(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"spaces only", "   ", nil},
		{"plain tokens", "1 2 three", []string{"1", "2", "three"}},
		{"double quoted", `"Elden Ring" KEY-123 60 5`, []string{"Elden Ring", "KEY-123", "60", "5"}},
		{"single quoted", `'Action RPG' EU`, []string{"Action RPG", "EU"}},
		{"adjacent quote starts new token", `id"quoted"`, []string{"id", "quoted"}},
		{"empty quoted token", `"" x`, []string{"", "x"}},
		{"mixed whitespace", "a\tb\nc", []string{"a", "b", "c"}},
		{"quote char inside other quotes", `"it's fine"`, []string{"it's fine"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SplitArgs(tc.in)
			if err != nil {
				t.Fatalf("SplitArgs(%q): %v", tc.in, err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("SplitArgs(%q) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

func TestSplitArgs_UnterminatedQuote(t *testing.T) {
	for _, in := range []string{`"open`, `'open`, `ok "broken`} {
		if _, err := SplitArgs(in); err == nil {
			t.Errorf("SplitArgs(%q): expected error", in)
		}
	}
}

func TestArgHelpers(t *testing.T) {
	args := []string{"42", "abc"}

	n, err := argInt64(args, 0, "id")
	if err != nil || n != 42 {
		t.Errorf("argInt64 = %d, %v", n, err)
	}
	if _, err := argInt64(args, 1, "id"); err == nil {
		t.Error("expected parse error for non-number")
	}
	if _, err := argInt64(args, 5, "id"); err == nil {
		t.Error("expected error for missing index")
	}

	if got := optArg(args, 1); got != "abc" {
		t.Errorf("optArg = %q", got)
	}
	if got := optArg(args, 9); got != "" {
		t.Errorf("optArg out of range = %q", got)
	}
}
