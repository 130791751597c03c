package env

import (
	"testing"
	"time"
)

func TestRequire(t *testing.T) {
	t.Setenv("WAYFARER_TEST_KEY", "value")

	got, err := Require("WAYFARER_TEST_KEY")
	if err != nil || got != "value" {
		t.Fatalf("Require = %q, %v", got, err)
	}

	if _, err := Require("WAYFARER_TEST_MISSING"); err == nil {
		t.Fatal("expected error for missing variable")
	}
}

func TestGetHelpers(t *testing.T) {
	t.Setenv("WAYFARER_STR", "hello")
	t.Setenv("WAYFARER_INT", "42")
	t.Setenv("WAYFARER_BAD_INT", "forty-two")
	t.Setenv("WAYFARER_FLOAT", "2.5")
	t.Setenv("WAYFARER_DUR", "36h")
	t.Setenv("WAYFARER_BOOL", "yes")

	if got := Get("WAYFARER_STR", "def"); got != "hello" {
		t.Errorf("Get = %q", got)
	}
	if got := Get("WAYFARER_UNSET", "def"); got != "def" {
		t.Errorf("Get default = %q", got)
	}
	if got := GetInt("WAYFARER_INT", 7); got != 42 {
		t.Errorf("GetInt = %d", got)
	}
	if got := GetInt("WAYFARER_BAD_INT", 7); got != 7 {
		t.Errorf("GetInt on garbage = %d, want default", got)
	}
	if got := GetFloat("WAYFARER_FLOAT", 1); got != 2.5 {
		t.Errorf("GetFloat = %v", got)
	}
	if got := GetDuration("WAYFARER_DUR", time.Hour); got != 36*time.Hour {
		t.Errorf("GetDuration = %v", got)
	}
	if got := GetBool("WAYFARER_BOOL", false); !got {
		t.Error("GetBool = false, want true")
	}
}
