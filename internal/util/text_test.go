package util

import "testing"

func TestNormalizeWhitespace(t *testing.T) {
	if got := NormalizeWhitespace("  a \n\t b  "); got != "a b" {
		t.Fatalf("got %q", got)
	}
}

func TestBodyPrefix(t *testing.T) {
	if got := BodyPrefix("hello   world", 100); got != "hello world" {
		t.Fatalf("got %q", got)
	}
	if got := BodyPrefix("abcdef", 3); got != "abc" {
		t.Fatalf("got %q", got)
	}
	// rune-safe truncation
	if got := BodyPrefix("héllo", 2); got != "hé" {
		t.Fatalf("got %q", got)
	}
}
