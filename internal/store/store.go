// Package store persists chat transcripts.
package store

import (
	"context"
	"fmt"

	"github.com/zhouzirui/lumi/backend/internal/model/chat"
)

// Repository stores transcript messages.
type Repository interface {
	SaveMessage(ctx context.Context, msg chat.Message) error
	ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error)
	Ping(ctx context.Context) error
	Close() error
}

// PersistenceError reports a failed storage operation. Callers on the turn
// path log it and continue.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
