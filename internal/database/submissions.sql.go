package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countSubmissions = `-- name: CountSubmissions :one
SELECT count(*) FROM submissions
`

func (q *Queries) CountSubmissions(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countSubmissions)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createSubmission = `-- name: CreateSubmission :one
INSERT INTO submissions (kind, status, session_id, backend_order_id, customer_name, email, total, error_message, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, kind, status, session_id, backend_order_id, customer_name, email, total, error_message, payload, created_at
`

type CreateSubmissionParams struct {
	Kind           string
	Status         string
	SessionID      pgtype.UUID
	BackendOrderID pgtype.Text
	CustomerName   string
	Email          string
	Total          pgtype.Numeric
	ErrorMessage   pgtype.Text
	Payload        []byte
}

func (q *Queries) CreateSubmission(ctx context.Context, arg CreateSubmissionParams) (Submission, error) {
	row := q.db.QueryRow(ctx, createSubmission,
		arg.Kind,
		arg.Status,
		arg.SessionID,
		arg.BackendOrderID,
		arg.CustomerName,
		arg.Email,
		arg.Total,
		arg.ErrorMessage,
		arg.Payload,
	)
	var i Submission
	err := row.Scan(
		&i.ID,
		&i.Kind,
		&i.Status,
		&i.SessionID,
		&i.BackendOrderID,
		&i.CustomerName,
		&i.Email,
		&i.Total,
		&i.ErrorMessage,
		&i.Payload,
		&i.CreatedAt,
	)
	return i, err
}

const listSubmissions = `-- name: ListSubmissions :many
SELECT id, kind, status, session_id, backend_order_id, customer_name, email, total, error_message, payload, created_at FROM submissions
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

type ListSubmissionsParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListSubmissions(ctx context.Context, arg ListSubmissionsParams) ([]Submission, error) {
	rows, err := q.db.Query(ctx, listSubmissions, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Submission
	for rows.Next() {
		var i Submission
		if err := rows.Scan(
			&i.ID,
			&i.Kind,
			&i.Status,
			&i.SessionID,
			&i.BackendOrderID,
			&i.CustomerName,
			&i.Email,
			&i.Total,
			&i.ErrorMessage,
			&i.Payload,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
