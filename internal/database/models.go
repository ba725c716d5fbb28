package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Admin struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	IsActive       bool
	CreatedAt      time.Time
}

type Submission struct {
	ID             uuid.UUID
	Kind           string
	Status         string
	SessionID      pgtype.UUID
	BackendOrderID pgtype.Text
	CustomerName   string
	Email          string
	Total          pgtype.Numeric
	ErrorMessage   pgtype.Text
	Payload        []byte
	CreatedAt      time.Time
}
