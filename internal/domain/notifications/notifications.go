package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hrops/internal/platform/querier"
)

const (
	KindLeaveSubmitted = "leave_submitted"
	KindLeaveApproved  = "leave_approved"
	KindLeaveRejected  = "leave_rejected"
	KindLeaveCancelled = "leave_cancelled"
)

// Mailer delivers a single plain-text message. Delivery is best effort and
// never part of a domain transaction.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Service struct {
	DB     querier.Querier
	Mailer Mailer
	From   string
}

func NewService(db querier.Querier, mailer Mailer, from string) *Service {
	return &Service{DB: db, Mailer: mailer, From: from}
}

// Notify stores an in-app notification and, when a mailer is configured,
// mails the user's address. A failed mail send does not fail the call.
func (s *Service) Notify(ctx context.Context, userID, kind, title, body string) error {
	if userID == "" {
		return nil
	}
	if _, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (user_id, kind, title, body)
    VALUES ($1,$2,$3,$4)
  `, userID, kind, title, body); err != nil {
		return err
	}

	if s.Mailer != nil {
		var email string
		if err := s.DB.QueryRow(ctx, "SELECT email FROM users WHERE id = $1", userID).Scan(&email); err == nil {
			_ = s.Mailer.Send(ctx, s.From, email, title, body)
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]Notification, int, error) {
	where := " WHERE user_id = $1"
	if unreadOnly {
		where += " AND read_at IS NULL"
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM notifications"+where, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, fmt.Sprintf(`
    SELECT id, user_id, kind, title, body, read_at, created_at
    FROM notifications
    %s
    ORDER BY created_at DESC, id ASC
    LIMIT $2 OFFSET $3
  `, where), userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = now()
    WHERE id = $1 AND user_id = $2 AND read_at IS NULL
  `, notificationID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = now()
    WHERE user_id = $1 AND read_at IS NULL
  `, userID)
	return err
}

// UserIDForEmployee resolves the login user behind an employee record, for
// decision fanout back to the requester.
func (s *Service) UserIDForEmployee(ctx context.Context, employeeID string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(user_id::text, '') FROM employees WHERE id = $1
  `, employeeID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return userID, err
}

// ManagerUserIDForEmployee resolves the user behind an employee's direct
// manager, falling back to the department head.
func (s *Service) ManagerUserIDForEmployee(ctx context.Context, employeeID string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(m.user_id::text, '')
    FROM employees e
    JOIN employees m ON m.id = COALESCE(e.manager_id, (SELECT d.manager_id FROM departments d WHERE d.id = e.department_id))
    WHERE e.id = $1
  `, employeeID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return userID, err
}

func (s *Service) AdminUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id FROM users WHERE role_name = 'admin' AND status = 'active'
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
