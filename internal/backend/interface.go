// Package backend builds the remote store and replicator selected by
// configuration.
package backend

import (
	"context"

	"costbook/internal/remote"
	"costbook/internal/remote/sheets"
	"costbook/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the remote store, the replicator feeding it and a cleanup
// function releasing their connections.
type Result struct {
	Remote     remote.Store
	Replicator services.Replicator
	Cleanup    CleanupFunc
}

// Close runs Cleanup when one is set.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID string
	Credentials         sheets.Credentials
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
