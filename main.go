package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"ansible-output-formatter/ansiblefmt"
	"ansible-output-formatter/editor"
	"ansible-output-formatter/highlight"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "ansible-output-formatter"
	serverVersion = "1.0.0"

	successMessage  = "Ansible output formatted and syntax highlighting applied!"
	languageMessage = "Language set to %s - syntax highlighting applied"
)

// userMessage maps a pipeline error to the message shown to users.
func userMessage(err error) string {
	switch {
	case errors.Is(err, editor.ErrNoText):
		return "No active editor found"
	case errors.Is(err, editor.ErrEditRejected):
		return "Failed to format output"
	default:
		return fmt.Sprintf("Error formatting: %v", err)
	}
}

func main() {
	// CLI flags
	serve := flag.Bool("serve", false, "Run as an MCP server instead of formatting a file")
	transport := flag.String("transport", "stdio", "Transport mode: stdio or sse")
	port := flag.String("port", "8080", "Port for SSE server (only used with -transport=sse)")
	baseURL := flag.String("base-url", "", "Base URL for SSE server (default: http://localhost:<port>)")
	configPath := flag.String("config", "", "YAML config file (default: $FORMATTER_CONFIG)")

	var opts cliOptions
	flag.BoolVar(&opts.write, "w", false, "Write the result back to the file instead of stdout")
	flag.StringVar(&opts.color, "color", "", "Highlight output: auto, always or never (default: config)")
	flag.StringVar(&opts.style, "style", "", "Chroma style used for highlighting (default: config)")
	flag.BoolVar(&opts.fold, "fold", false, "Print the folded view")
	flag.BoolVar(&opts.highlightOnly, "highlight-only", false, "Only switch the language, do not reformat")
	flag.BoolVar(&opts.report, "report", false, "Print the format report to stderr")
	flag.BoolVar(&opts.quiet, "quiet", false, "Suppress log output")
	flag.Parse()

	if *configPath != "" {
		if err := UseConfigFile(*configPath); err != nil {
			log.Fatalf("[CONFIG] %v", err)
		}
	}

	if !*serve {
		if flag.NArg() > 1 {
			fmt.Fprintln(os.Stderr, "usage: ansible-output-formatter [flags] [file|-]")
			os.Exit(2)
		}
		opts.path = flag.Arg(0)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		code := runCLI(ctx, opts, os.Stdin, os.Stdout, os.Stderr)
		stop()
		os.Exit(code)
	}

	// Also check environment variables
	if t := os.Getenv("MCP_TRANSPORT"); t != "" && *transport == "stdio" {
		*transport = t
	}
	if p := os.Getenv("MCP_PORT"); p != "" && *port == "8080" {
		*port = p
	}
	if b := os.Getenv("MCP_BASE_URL"); b != "" && *baseURL == "" {
		*baseURL = b
	}

	s := newServer()

	switch *transport {
	case "sse":
		// Set default base URL if not specified
		if *baseURL == "" {
			*baseURL = fmt.Sprintf("http://localhost:%s", *port)
		}

		sseServer := server.NewSSEServer(s,
			server.WithBaseURL(*baseURL),
			server.WithKeepAlive(true),
		)

		log.Printf("Starting SSE server on :%s (base URL: %s)", *port, *baseURL)
		log.Printf("SSE endpoint: %s/sse", *baseURL)
		log.Printf("Message endpoint: %s/message", *baseURL)

		if err := http.ListenAndServe(":"+*port, sseServer); err != nil {
			log.Fatalf("SSE server error: %v", err)
		}

	case "stdio":
		fallthrough
	default:
		if err := server.ServeStdio(s); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}
}

// newServer builds the MCP server and registers the formatter tools.
func newServer() *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	formatTool := mcp.NewTool("format_ansible_output",
		mcp.WithDescription("Reformat Ansible play output: pretty-prints the JSON results and (item=...) "+
			"literals embedded in it and tags the text as ansible-output. Text that is not recognised is returned unchanged."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Raw Ansible output, as printed by ansible-playbook"),
		),
		mcp.WithBoolean("include_report",
			mcp.Description("Return a JSON envelope with the text, language, fold ranges and a report of rewritten regions"),
		),
		mcp.WithBoolean("mcp_logging",
			mcp.Description("Send the format report as an MCP logging notification"),
		),
	)
	s.AddTool(formatTool, handleFormatAnsibleOutput)

	languageTool := mcp.NewTool("set_language",
		mcp.WithDescription("Tag text as ansible-output without reformatting it. Returns the language id and display name."),
		mcp.WithString("text",
			mcp.Description("Text to tag; it is not modified"),
		),
	)
	s.AddTool(languageTool, handleSetLanguage)

	infoTool := mcp.NewTool("formatter_info",
		mcp.WithDescription("Show the formatter configuration and result cache statistics"),
	)
	s.AddTool(infoTool, handleFormatterInfo)

	return s
}

func newPipeline(cfg *Config) *editor.Pipeline {
	p := editor.NewPipeline()
	p.LanguageID = cfg.LanguageID
	p.FoldDelay = cfg.FoldDelay
	return p
}

// formatResponse is the include_report envelope.
type formatResponse struct {
	RequestID   string             `json:"request_id"`
	Text        string             `json:"text"`
	Language    string             `json:"language"`
	DisplayName string             `json:"display_name"`
	Folds       []editor.FoldRange `json:"folds"`
	Report      ansiblefmt.Report  `json:"report"`
	Message     string             `json:"message"`
}

func handleFormatAnsibleOutput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	text, ok := args["text"].(string)
	if !ok {
		return mcp.NewToolResultError(userMessage(editor.ErrNoText)), nil
	}

	cfg := GetConfig()
	if int64(len(text)) > cfg.MaxInputBytes {
		return mcp.NewToolResultError(fmt.Sprintf("text is %d bytes, limit is %d", len(text), cfg.MaxInputBytes)), nil
	}

	includeReport, _ := args["include_report"].(bool)
	notifier := NewReportNotifier(ctx, "format_ansible_output", args)

	cache := getResultCache()
	cacheKey := ""
	if cache != nil {
		cacheKey = buildCacheKey("format_ansible_output", cfg.LanguageID, args)
		if cached, ok := cache.Get(cacheKey); ok {
			log.Printf("[CACHE] hit for format_ansible_output")
			return mcp.NewToolResultText(cached), nil
		}
	}

	release, err := AcquireFormatSlot(ctx)
	if err != nil {
		log.Printf("[RATE-LIMIT] gave up waiting for a format slot: %v", err)
		return mcp.NewToolResultError(fmt.Sprintf("Request cancelled: %v", err)), nil
	}
	defer release()

	buf := editor.NewBuffer(text)
	out, err := newPipeline(cfg).FormatAndHighlight(ctx, buf)
	if err != nil {
		notifier.SendText(mcp.LoggingLevelError, userMessage(err))
		return mcp.NewToolResultError(userMessage(err)), nil
	}

	select {
	case <-out.Settled:
	case <-ctx.Done():
		return mcp.NewToolResultError(fmt.Sprintf("Request cancelled: %v", ctx.Err())), nil
	}
	notifier.SendReport(out)

	output := buf.String()
	if includeReport {
		resp := formatResponse{
			RequestID:   out.RequestID,
			Text:        output,
			Language:    buf.Language(),
			DisplayName: highlight.DisplayName(buf.Language()),
			Folds:       buf.Folds(),
			Report:      out.Report,
			Message:     successMessage,
		}
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize response: %v", err)), nil
		}
		output = string(data)
	}

	if cache != nil {
		cache.Set(cacheKey, output)
	}
	return mcp.NewToolResultText(output), nil
}

func handleSetLanguage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	text, _ := args["text"].(string)

	cfg := GetConfig()
	buf := editor.NewBuffer(text)
	if err := newPipeline(cfg).SetLanguage(ctx, buf); err != nil {
		return mcp.NewToolResultError(userMessage(err)), nil
	}

	resp := map[string]interface{}{
		"language":     buf.Language(),
		"display_name": highlight.DisplayName(buf.Language()),
		"message":      fmt.Sprintf(languageMessage, highlight.DisplayName(buf.Language())),
	}
	output, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(output)), nil
}

func handleFormatterInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := GetConfig()

	maxConcurrent := fmt.Sprintf("%d", cfg.MaxConcurrentFormats)
	if cfg.MaxConcurrentFormats == 0 {
		maxConcurrent = "unlimited"
	}

	info := map[string]interface{}{
		"name":            serverName,
		"version":         serverVersion,
		"language_id":     cfg.LanguageID,
		"display_name":    highlight.DisplayName(cfg.LanguageID),
		"fold_delay":      cfg.FoldDelay.String(),
		"max_input_bytes": cfg.MaxInputBytes,
		"max_concurrent":  maxConcurrent,
		"style":           cfg.Style,
		"cache":           getResultCache().Stats(),
		"tools":           []string{"format_ansible_output", "set_language", "formatter_info"},
	}

	output, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		log.Printf("Warning: failed to serialize formatter info: %v", err)
		output = []byte("{}")
	}
	return mcp.NewToolResultText(strings.TrimSpace(string(output))), nil
}
