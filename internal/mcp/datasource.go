package mcp

import (
	"context"

	"github.com/claude/circuit/internal/client"
	"github.com/claude/circuit/internal/models"
	"github.com/claude/circuit/internal/schedule"
	"github.com/claude/circuit/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *schedule.Service
// (local database) and *client.HTTPClient (remote via REST API) satisfy it.
type DataSource interface {
	LoadState(ctx context.Context) (*models.StatePayload, error)
	Completed(ctx context.Context) ([]models.CompletedEntry, error)
	CompletedEntry(ctx context.Context, id string) (*models.CompletedEntry, error)
	ReplacePlan(ctx context.Context, source string, doc models.PlanDocument) (*schedule.ImportResult, error)
	ImportLogs(ctx context.Context, limit int) ([]storage.ImportLog, error)
}

var (
	_ DataSource = (*schedule.Service)(nil)
	_ DataSource = (*client.HTTPClient)(nil)
)
