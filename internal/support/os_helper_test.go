package support

import (
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("URLGUARD_TEST_ENV", "value")
	if got := GetEnv("URLGUARD_TEST_ENV", "fallback"); got != "value" {
		t.Fatalf("GetEnv returned %s, want value", got)
	}

	if got := GetEnv("URLGUARD_TEST_ENV_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("GetEnv returned %s, want fallback", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("URLGUARD_TEST_INT", " 42 ")
	if got := GetEnvInt("URLGUARD_TEST_INT", 7); got != 42 {
		t.Fatalf("GetEnvInt returned %d, want 42", got)
	}

	t.Setenv("URLGUARD_TEST_INT_BAD", "many")
	if got := GetEnvInt("URLGUARD_TEST_INT_BAD", 7); got != 7 {
		t.Fatalf("GetEnvInt with invalid value returned %d, want 7", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("URLGUARD_TEST_BOOL", "true")
	if !GetEnvBool("URLGUARD_TEST_BOOL", false) {
		t.Fatal("GetEnvBool returned false, want true")
	}
	if !GetEnvBool("URLGUARD_TEST_BOOL_MISSING", true) {
		t.Fatal("GetEnvBool ignored fallback")
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("URLGUARD_TEST_DURATION", "90s")
	if got := GetEnvDuration("URLGUARD_TEST_DURATION", time.Minute); got != 90*time.Second {
		t.Fatalf("GetEnvDuration returned %s, want 1m30s", got)
	}

	t.Setenv("URLGUARD_TEST_DURATION_NEG", "-5s")
	if got := GetEnvDuration("URLGUARD_TEST_DURATION_NEG", time.Minute); got != time.Minute {
		t.Fatalf("GetEnvDuration with negative value returned %s, want fallback", got)
	}
}
