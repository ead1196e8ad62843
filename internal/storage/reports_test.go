package storage

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/mind-engage/mindengage-cat/internal/exam"
)

func TestReportArchiveWritesCompletedOnly(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("fs: %v", err)
	}
	a := NewReportArchive(fs)
	ctx := context.Background()

	if err := a.Publish(ctx, exam.Event{Type: exam.EventStarted, SessionID: "s1"}); err != nil {
		t.Fatalf("publish started: %v", err)
	}
	if _, err := a.Open("s1"); err == nil {
		t.Fatal("report written for a non-completed event")
	}

	res := exam.TestResult{SessionID: "s1", Score: 7, TotalAnswered: 10, Reason: exam.ReasonItemCount}
	if err := a.Publish(ctx, exam.Event{Type: exam.EventCompleted, SessionID: "s1", Owner: "bob", Payload: res}); err != nil {
		t.Fatalf("publish completed: %v", err)
	}
	rc, err := a.Open("s1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	raw, _ := io.ReadAll(rc)
	var got struct {
		Owner  string          `json:"owner"`
		Result exam.TestResult `json:"result"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Owner != "bob" || got.Result.Score != 7 || got.Result.Reason != exam.ReasonItemCount {
		t.Fatalf("unexpected report: %+v", got)
	}
}

func TestReportArchiveRejectsWrongPayload(t *testing.T) {
	fs, _ := NewFSStore(t.TempDir())
	a := NewReportArchive(fs)
	err := a.Publish(context.Background(), exam.Event{Type: exam.EventCompleted, SessionID: "s2", Payload: "nope"})
	if err == nil {
		t.Fatal("expected error for non-result payload")
	}
}

func TestFSStoreKeysStayUnderBase(t *testing.T) {
	base := t.TempDir()
	fs, _ := NewFSStore(base)
	p, err := fs.path("../../etc/passwd")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if want := base + "/etc/passwd"; p != want {
		t.Fatalf("path escaped base: got %s want %s", p, want)
	}
	if _, err := fs.Put("", nil); err == nil {
		t.Fatal("empty key accepted")
	}
}
