package logger

import "testing"

func TestSanitizeKVsRedactsCredentials(t *testing.T) {
	got := sanitizeKVs([]interface{}{"user", "alice", "access_token", "abc.def.ghi", "Password", "pw", "dangling"})
	want := []interface{}{"user", "alice", "access_token", "[REDACTED]", "Password", "[REDACTED]", "dangling"}
	if len(got) != len(want) {
		t.Fatalf("len %d want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("kv[%d] = %v want %v", i, got[i], want[i])
		}
	}
}

func TestNopDoesNotPanic(t *testing.T) {
	l := Nop().With("session_id", "x")
	l.Debug("d")
	l.Info("i", "k", 1)
	l.Warn("w")
	l.Error("e", "error", "boom")
	l.Sync()
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		if l.SugaredLogger == nil {
			t.Fatalf("New(%q) returned nil sugared logger", mode)
		}
	}
}
