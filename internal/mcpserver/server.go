// Package mcpserver exposes the resolution engine as an MCP stdio server,
// so agent hosts can call meal analysis and logging as tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/platewise/platewise/internal/logstore"
	"github.com/platewise/platewise/internal/resolve"
	"github.com/platewise/platewise/pkg/nutrition"
)

// Server wraps the engine behind MCP tools.
type Server struct {
	engine *resolve.Engine
	log    *slog.Logger
}

// New returns an MCP server over engine.
func New(engine *resolve.Engine, log *slog.Logger) *Server {
	return &Server{engine: engine, log: log}
}

// AnalyzeMealArgs are the analyze_meal tool arguments.
type AnalyzeMealArgs struct {
	Transcript string `json:"transcript" jsonschema:"the spoken or typed meal description"`
}

// LogMealArgs are the log_meal tool arguments.
type LogMealArgs struct {
	UserID     string               `json:"user_id" jsonschema:"identifier of the user logging the meal"`
	MealType   string               `json:"meal_type" jsonschema:"breakfast, lunch, dinner, or snack"`
	Transcript string               `json:"transcript,omitempty" jsonschema:"original transcript, if any"`
	Items      []nutrition.MealItem `json:"items" jsonschema:"resolved meal items to persist"`
	Totals     nutrition.MacroSet   `json:"totals,omitempty" jsonschema:"meal totals; recomputed when zero"`
}

// LogMealResult reports persistence success.
type LogMealResult struct {
	Success bool `json:"success"`
}

// Run serves the MCP tools over stdio until ctx is cancelled or the host
// closes the stream.
func (s *Server) Run(ctx context.Context) error {
	srv := mcpsdk.NewServer(
		&mcpsdk.Implementation{Name: "platewise", Version: "1.0.0"},
		nil,
	)

	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        "analyze_meal",
		Description: "Resolve a meal transcript into quantified food items with macros and totals.",
	}, s.analyzeMeal)

	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        "log_meal",
		Description: "Persist a finalized list of meal items with totals for a user.",
	}, s.logMeal)

	s.log.Info("mcp server listening on stdio")
	if err := srv.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcpserver: run: %w", err)
	}
	return nil
}

func (s *Server) analyzeMeal(ctx context.Context, _ *mcpsdk.CallToolRequest, args AnalyzeMealArgs) (*mcpsdk.CallToolResult, *nutrition.MealAnalysis, error) {
	analysis, err := s.engine.Analyze(ctx, args.Transcript)
	if err != nil {
		return nil, nil, fmt.Errorf("analyze meal: %w", err)
	}

	payload, err := json.Marshal(analysis)
	if err != nil {
		return nil, nil, fmt.Errorf("encode analysis: %w", err)
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(payload)}},
	}, analysis, nil
}

func (s *Server) logMeal(ctx context.Context, _ *mcpsdk.CallToolRequest, args LogMealArgs) (*mcpsdk.CallToolResult, *LogMealResult, error) {
	entry := logstore.Entry{
		UserID:     args.UserID,
		LoggedAt:   time.Now().UTC(),
		MealType:   args.MealType,
		Transcript: args.Transcript,
		Items:      args.Items,
		Totals:     args.Totals,
	}

	result := &LogMealResult{Success: true}
	if err := s.engine.Log(ctx, entry); err != nil {
		s.log.Error("log meal tool failed", "user", args.UserID, "error", err)
		result.Success = false
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(payload)}},
	}, result, nil
}
