package logging

import "testing"

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("development", "loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewBuildsBothModes(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		logger, err := New(env, "debug")
		if err != nil {
			t.Fatalf("%s: %v", env, err)
		}
		_ = logger.Sync()
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected a logger")
	}
}
