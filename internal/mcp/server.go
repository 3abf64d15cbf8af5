package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("circuit", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Circuit workout plan server. Read the scheduled workouts and the completed history, then publish the next plan with replace_plan. Dates are YYYY-MM-DD; every workout needs an id, date, title and at least one exercise."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolGetCompletedHistory, Handler: h.getCompletedHistory},
		server.ServerTool{Tool: toolReplacePlan, Handler: h.replacePlan},
		server.ServerTool{Tool: toolListImports, Handler: h.listImports},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resPlan, Handler: h.plan},
		server.ServerResource{Resource: resCompleted, Handler: h.completed},
	)
	s.AddResourceTemplate(resCompletedEntry, h.completedEntry)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resPlan = mcp.NewResource(
	"circuit://plan",
	"Current Plan",
	mcp.WithResourceDescription("Plan metadata and the scheduled workouts in schedule order"),
	mcp.WithMIMEType("application/json"),
)

var resCompleted = mcp.NewResource(
	"circuit://completed",
	"Completed History",
	mcp.WithResourceDescription("Completed workouts, newest first"),
	mcp.WithMIMEType("application/json"),
)

var resCompletedEntry = mcp.NewResourceTemplate(
	"circuit://completed/{id}",
	"Completed Workout",
	mcp.WithTemplateDescription("One completed workout including the archived workout document"),
	mcp.WithTemplateMIMEType("application/json"),
)
