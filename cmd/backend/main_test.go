package main

import "testing"

func TestGetenvDefault(t *testing.T) {
	t.Setenv("PREP_TEST_VAR", "")
	if got := getenvDefault("PREP_TEST_VAR", "fallback"); got != "fallback" {
		t.Errorf("empty var: got %q, want %q", got, "fallback")
	}

	t.Setenv("PREP_TEST_VAR", "set")
	if got := getenvDefault("PREP_TEST_VAR", "fallback"); got != "set" {
		t.Errorf("set var: got %q, want %q", got, "set")
	}
}
