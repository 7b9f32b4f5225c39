package main

import (
	"context"
	"os"
	"strings"

	"ansible-output-formatter/editor"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ReportNotifier sends format reports to MCP clients as logging notifications.
type ReportNotifier struct {
	ctx        context.Context
	mcpServer  *server.MCPServer
	logger     string
	mcpLogging bool
}

// NewReportNotifier creates a notifier from the server carried by ctx.
// Notifications are sent only when mcp_logging is set in args or
// MCP_LOGGING_STREAM is true.
func NewReportNotifier(ctx context.Context, logger string, args map[string]interface{}) *ReportNotifier {
	return &ReportNotifier{
		ctx:        ctx,
		mcpServer:  server.ServerFromContext(ctx),
		logger:     logger,
		mcpLogging: determineBoolFlag(args, "mcp_logging", "MCP_LOGGING_STREAM"),
	}
}

// IsActive returns true if the notifier can send notifications
func (n *ReportNotifier) IsActive() bool {
	return n.mcpServer != nil && n.mcpLogging
}

// SendReport sends the outcome of a committed format.
func (n *ReportNotifier) SendReport(out *editor.Outcome) {
	if !n.IsActive() || out == nil {
		return
	}

	r := out.Report
	data := map[string]interface{}{
		"type":       "report",
		"request_id": out.RequestID,
		"formatted":  r.Formatted(),
		"items":      r.Items,
		"arrows":     r.Arrows,
		"bare":       r.Bare,
	}
	if r.Repaired > 0 {
		data["repaired"] = r.Repaired
	}
	level := mcp.LoggingLevelInfo
	if r.Skipped > 0 {
		data["skipped"] = r.Skipped
		level = mcp.LoggingLevelNotice
	}

	n.mcpServer.SendLogMessageToClient(n.ctx, mcp.LoggingMessageNotification{
		Params: mcp.LoggingMessageNotificationParams{
			Level:  level,
			Logger: n.logger,
			Data:   data,
		},
	})
}

// SendText sends a plain message.
func (n *ReportNotifier) SendText(level mcp.LoggingLevel, message string) {
	if !n.IsActive() {
		return
	}

	n.mcpServer.SendLogMessageToClient(n.ctx, mcp.LoggingMessageNotification{
		Params: mcp.LoggingMessageNotificationParams{
			Level:  level,
			Logger: n.logger,
			Data:   message,
		},
	})
}

// determineBoolFlag checks a boolean flag from args then environment variable
func determineBoolFlag(args map[string]interface{}, argName, envName string) bool {
	if val, ok := args[argName].(bool); ok {
		return val
	}

	envVal := strings.ToLower(getEnv(envName))
	return envVal == "true" || envVal == "1"
}

// getEnv is a helper to get environment variable (wrapper for testing)
func getEnv(key string) string {
	return strings.TrimSpace(envGetter(key))
}

// envGetter is the actual env getter function (can be replaced in tests)
var envGetter = os.Getenv

// resetEnvGetter restores the default environment getter function
func resetEnvGetter() {
	envGetter = os.Getenv
}
