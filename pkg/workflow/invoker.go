package workflow

import (
	"context"
	"time"
)

// Result is the normalized outcome of one engine run.
type Result struct {
	Text            string
	RemoteSessionID string
	DurationMs      int64
	Timestamp       time.Time
	// Strategy names the extraction rule that produced Text.
	Strategy string
}

// Invoker defines the contract for running a message through a workflow engine.
// workflowID may be empty, in which case the implementation falls back to its
// configured default.
type Invoker interface {
	Invoke(ctx context.Context, message, sessionID, workflowID string) (*Result, error)
}

// Catalog exposes the engine's read-only flow listing and health endpoints.
// Values are the engine's raw JSON documents.
type Catalog interface {
	ListFlows(ctx context.Context) (any, error)
	GetFlow(ctx context.Context, id string) (any, error)
	Health(ctx context.Context, subPath string) (any, error)
}
