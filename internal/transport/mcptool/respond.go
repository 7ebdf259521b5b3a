package mcptool

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/internal/domain"
)

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// respond marshals a successful payload into the tool result.
func respond(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, v, nil
}

// Validation and flow sentinels carry messages written for the calling agent;
// they pass through unchanged. Everything else is an internal failure and is
// replaced with a generic message unless debug mode is on.
var callerFacing = []error{
	domain.ErrEmptyQuery,
	domain.ErrInvalidTopK,
	domain.ErrInvalidFilter,
	domain.ErrSuggestionRequired,
	domain.ErrNamespaceNotFound,
	domain.ErrNoNamespaceAvailable,
}

func (s *Server) fail(tool string, err error) (*mcp.CallToolResult, any, error) {
	msg := err.Error()
	if !isCallerFacing(err) {
		s.log.Error("tool call failed", zap.String("tool", tool), zap.Error(err))
		if !s.debug {
			msg = fmt.Sprintf("%s failed: the search backend did not return a result", tool)
		}
	}

	data, _ := json.Marshal(errorBody{Status: "error", Message: msg})
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func isCallerFacing(err error) bool {
	for _, sentinel := range callerFacing {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
