package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) plan(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	state, err := h.ds.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, map[string]any{
		"meta":     state.Meta,
		"workouts": state.Workouts,
	})
}

func (h *handlers) completed(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entries, err := h.ds.Completed(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, entries)
}

func (h *handlers) completedEntry(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id := strings.TrimPrefix(req.Params.URI, "circuit://completed/")
	entry, err := h.ds.CompletedEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, entry)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
