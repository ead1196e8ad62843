package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ResultRepo persists completed results in session_results. It is an
// EventSink for session.completed and the engine's archive once a session
// has been swept from memory.
type ResultRepo struct {
	db *sql.DB
}

func NewResultRepo(db *sql.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

func (r *ResultRepo) Save(ctx context.Context, owner string, res TestResult) error {
	buf, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO session_results
		(session_id, owner, reason, score, total_answered, passing_probability, result_json, started_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (session_id) DO NOTHING`,
		res.SessionID, owner, string(res.Reason), res.Score, res.TotalAnswered, res.PassingProbability,
		string(buf), res.StartedAt.Unix(), res.CompletedAt.Unix())
	return err
}

// Publish stores the payload of session.completed events and ignores the rest.
func (r *ResultRepo) Publish(ctx context.Context, ev Event) error {
	if ev.Type != EventCompleted {
		return nil
	}
	res, ok := ev.Payload.(TestResult)
	if !ok {
		return fmt.Errorf("completed event for %s carries %T", ev.SessionID, ev.Payload)
	}
	return r.Save(ctx, ev.Owner, res)
}

func (r *ResultRepo) LoadResult(ctx context.Context, sessionID string) (TestResult, string, error) {
	row := r.db.QueryRowContext(ctx, `SELECT owner, result_json FROM session_results WHERE session_id=$1`, sessionID)
	var owner, rjson string
	if err := row.Scan(&owner, &rjson); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TestResult{}, "", ErrSessionNotFound
		}
		return TestResult{}, "", err
	}
	var res TestResult
	if err := json.Unmarshal([]byte(rjson), &res); err != nil {
		return TestResult{}, "", err
	}
	return res, owner, nil
}

// ListByOwner returns an owner's results, newest first.
func (r *ResultRepo) ListByOwner(ctx context.Context, owner string, limit int) ([]TestResult, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT result_json FROM session_results
		WHERE owner=$1 ORDER BY completed_at DESC, session_id LIMIT $2`, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TestResult
	for rows.Next() {
		var rjson string
		if err := rows.Scan(&rjson); err != nil {
			return nil, err
		}
		var res TestResult
		if err := json.Unmarshal([]byte(rjson), &res); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
