package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mind-engage/mindengage-cat/internal/exam"
)

// ReportArchive writes the final result of every completed session to
// reports/<session>.json in a blob store.
type ReportArchive struct {
	blobs BlobStore
}

func NewReportArchive(b BlobStore) *ReportArchive { return &ReportArchive{blobs: b} }

func ReportKey(sessionID string) string { return "reports/" + sessionID + ".json" }

func (a *ReportArchive) Publish(ctx context.Context, ev exam.Event) error {
	if ev.Type != exam.EventCompleted {
		return nil
	}
	res, ok := ev.Payload.(exam.TestResult)
	if !ok {
		return fmt.Errorf("completed event for %s carries %T", ev.SessionID, ev.Payload)
	}
	buf, err := json.MarshalIndent(struct {
		Owner  string          `json:"owner"`
		Result exam.TestResult `json:"result"`
	}{ev.Owner, res}, "", "  ")
	if err != nil {
		return err
	}
	_, err = a.blobs.Put(ReportKey(ev.SessionID), bytes.NewReader(buf))
	return err
}

// Open streams the archived report for sessionID.
func (a *ReportArchive) Open(sessionID string) (io.ReadCloser, error) {
	return a.blobs.Get(ReportKey(sessionID))
}
