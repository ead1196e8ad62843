package itembank

import (
	"context"
	"errors"
	"time"
)

// Retrying wraps a Gateway and retries calls that fail with
// ErrBankUnavailable. Other errors are returned immediately.
type Retrying struct {
	next     Gateway
	attempts int
	backoff  time.Duration
}

func WithRetry(g Gateway, attempts int, backoff time.Duration) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{next: g, attempts: attempts, backoff: backoff}
}

func (r *Retrying) FetchCandidates(ctx context.Context, categories []string, difficulty Difficulty, exclude map[string]struct{}) ([]Item, error) {
	var out []Item
	err := r.do(ctx, func() error {
		var err error
		out, err = r.next.FetchCandidates(ctx, categories, difficulty, exclude)
		return err
	})
	return out, err
}

func (r *Retrying) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := r.do(ctx, func() error {
		var err error
		out, err = r.next.Categories(ctx)
		return err
	})
	return out, err
}

func (r *Retrying) do(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i < r.attempts; i++ {
		if err = fn(); err == nil || !errors.Is(err, ErrBankUnavailable) {
			return err
		}
		if i == r.attempts-1 {
			break
		}
		t := time.NewTimer(r.backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}
