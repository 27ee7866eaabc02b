package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Corpus is a named retrieval corpus record. DisplayName is unique: a
// second create with the same name resolves to the existing corpus.
type Corpus struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
}

// Job is one entry of the background job queue used for corpus imports.
type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
