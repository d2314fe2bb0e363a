package core

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  Namespace
	}{
		{"simple", "Hello World", "hello_world"},
		{"ampersand", "Salt & Pepper", "salt_and_pepper"},
		{"ampersand without spaces", "R&D", "randd"},
		{"punctuation runs collapse", "What?!  Really...", "what_really"},
		{"leading and trailing stripped", "  --Intro--  ", "intro"},
		{"digits kept", "Top 10 Tips (2024)", "top_10_tips_2024"},
		{"already normalized", "top_10_tips", "top_10_tips"},
		{"non ascii treated as separator", "Café Olé", "caf_ol"},
		{"empty", "", ""},
		{"only separators", "!!! ???", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.title); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"_",
		"__a__b__",
		"Hello World",
		"Salt & Pepper",
		"ÀÉÎ õü & 123",
		"a\tb\nc",
		"Ünïcödé — dashes – everywhere",
		"MiXeD_CaSe-123",
		"&&&",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(string(once))
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
