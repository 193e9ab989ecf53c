package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hrops/internal/platform/querier"
)

// Entry is one immutable line of a leave request's history. Entries are
// appended in the same transaction as the transition they document and are
// never updated or deleted.
type Entry struct {
	ID             string    `json:"id"`
	RequestID      string    `json:"requestId"`
	ActorID        string    `json:"actorId"`
	Action         string    `json:"action"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Comments       string    `json:"comments,omitempty"`
	IPAddress      string    `json:"ipAddress,omitempty"`
	UserAgent      string    `json:"userAgent,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Filter struct {
	RequestID string
	ActorID   string
	Action    string
	From      time.Time
	To        time.Time
}

// Recorder writes and reads audit log entries. It runs against whatever
// querier it is given, so callers that hold an open transaction can make the
// audit write part of that transaction.
type Recorder struct {
	DB querier.Querier
}

func New(db querier.Querier) *Recorder {
	return &Recorder{DB: db}
}

func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	_, err := r.DB.Exec(ctx, `
    INSERT INTO audit_log (request_id, actor_id, action, previous_status, new_status, comments, ip_address, user_agent)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, entry.RequestID, entry.ActorID, entry.Action, entry.PreviousStatus, entry.NewStatus, entry.Comments, entry.IPAddress, entry.UserAgent)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// ListForRequest returns a request's full trail, oldest first.
func (r *Recorder) ListForRequest(ctx context.Context, requestID string) ([]Entry, error) {
	rows, err := r.DB.Query(ctx, `
    SELECT id, request_id, actor_id, action, previous_status, new_status, comments, ip_address, user_agent, created_at
    FROM audit_log
    WHERE request_id = $1
    ORDER BY created_at ASC, id ASC
  `, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *Recorder) Count(ctx context.Context, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", filter)
	var total int
	if err := r.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// List returns entries newest first for the admin browsing surface.
func (r *Recorder) List(ctx context.Context, filter Filter, limit, offset int) ([]Entry, error) {
	query, args := buildBaseQuery("SELECT id, request_id, actor_id, action, previous_status, new_status, comments, ip_address, user_agent, created_at", filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func buildBaseQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " FROM audit_log WHERE 1=1"
	var args []any
	if filter.RequestID != "" {
		query += fmt.Sprintf(" AND request_id = $%d", len(args)+1)
		args = append(args, filter.RequestID)
	}
	if filter.ActorID != "" {
		query += fmt.Sprintf(" AND actor_id::text = $%d", len(args)+1)
		args = append(args, filter.ActorID)
	}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", len(args)+1)
		args = append(args, filter.Action)
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", len(args)+1)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(" AND created_at < $%d", len(args)+1)
		args = append(args, filter.To)
	}
	return query, args
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RequestID, &e.ActorID, &e.Action, &e.PreviousStatus, &e.NewStatus, &e.Comments, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
