// Package mcp exposes the agent's operations as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/tfta-mcp-server/internal/agent"
	"github.com/tfta-mcp-server/internal/domain"
)

// Tools outside the operation table
const (
	QueryToolName   = "tfta_query"
	RefreshToolName = "tfta_refresh"
	StatusToolName  = "tfta_status"

	OperationsResourceURI = "tfta://operations"
)

// entityArgs take a name, a delimited list, a grounded object or a list of
// either.
var entityArgs = map[string]bool{
	"tf": true, "target": true, "gene": true, "mirna": true,
	"kinase": true, "regulator": true, "of-those": true,
}

// Server represents the TFTA MCP server
type Server struct {
	agent     *agent.Agent
	mcpServer *mcp.Server
	logger    *logrus.Logger
}

// NewServer creates an MCP server answering with a.
func NewServer(a *agent.Agent, cfg domain.MCPConfig, logger *logrus.Logger) *Server {
	name := cfg.ServerName
	if name == "" {
		name = "tfta-mcp-server"
	}
	version := cfg.ServerVersion
	if version == "" {
		version = "v0.1.0"
	}

	s := &Server{
		agent: a,
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    name,
			Version: version,
		}, nil),
		logger: logger,
	}
	s.registerCapabilities()
	return s
}

// Run serves MCP over stdin and stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting TFTA MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// MCPServer returns the underlying SDK server, e.g. to connect other
// transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// ToolName maps an operation name to its tool name, e.g. FIND-TARGET to
// find_target.
func ToolName(operation string) string {
	return strings.ReplaceAll(strings.ToLower(operation), "-", "_")
}

func (s *Server) registerCapabilities() {
	ops := s.agent.Operations()
	for _, op := range ops {
		s.mcpServer.AddTool(&mcp.Tool{
			Name:        ToolName(op.Name),
			Description: op.Description,
			InputSchema: inputSchema(op.Args),
		}, s.operationHandler(op.Name))
	}

	s.mcpServer.AddTool(&mcp.Tool{
		Name:        QueryToolName,
		Description: "Answer any supported operation by name, e.g. FIND-TARGET with args {\"tf\": \"STAT3\"}",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"operation": {Type: "string", Description: "Operation name"},
				"args":      {Type: "object", Description: "Operation arguments"},
			},
			Required: []string{"operation"},
		},
	}, s.handleQuery)

	s.mcpServer.AddTool(&mcp.Tool{
		Name:        RefreshToolName,
		Description: "Drop cached symbol, tissue, exclusivity and enrichment data so it is rebuilt from the stores",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleRefresh)

	s.mcpServer.AddTool(&mcp.Tool{
		Name:        StatusToolName,
		Description: "Report store availability and cache state",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleStatus)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         OperationsResourceURI,
		Name:        "operations",
		Description: "Supported operations with their arguments",
		MIMEType:    "application/json",
	}, s.readOperations)

	s.logger.WithField("tool_count", len(ops)+3).Info("Registered MCP tools")
}

// inputSchema describes an operation's arguments.
func inputSchema(args []agent.ArgSpec) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(args)),
	}
	for _, arg := range args {
		prop := &jsonschema.Schema{Description: arg.Description, Type: "string"}
		switch {
		case entityArgs[arg.Name]:
			prop.Type = ""
			prop.Types = []string{"string", "array", "object"}
		case arg.Name == "count":
			prop.Type = ""
			prop.Types = []string{"integer", "string"}
		}
		schema.Properties[arg.Name] = prop
		if arg.Required {
			schema.Required = append(schema.Required, arg.Name)
		}
	}
	return schema
}

func (s *Server) operationHandler(operation string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args agent.Args
		if raw := req.Params.Arguments; len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return replyResult(invalidArguments(operation, err))
			}
		}
		return replyResult(s.agent.Handle(ctx, agent.Request{Operation: operation, Args: args}))
	}
}

func (s *Server) handleQuery(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params agent.Request
	if raw := req.Params.Arguments; len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return replyResult(invalidArguments(QueryToolName, err))
		}
	}
	return replyResult(s.agent.Handle(ctx, params))
}

func (s *Server) handleRefresh(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.agent.Refresh()
	return jsonResult(map[string]interface{}{"status": agent.StatusSuccess}, false)
}

func (s *Server) handleStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]interface{}{
		"store_available": s.agent.Ready(),
		"caches":          s.agent.CacheStats(),
	}, false)
}

func (s *Server) readOperations(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(s.agent.Operations())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal operations: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      OperationsResourceURI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func invalidArguments(operation string, err error) agent.Reply {
	return agent.Reply{
		Operation: strings.ToUpper(operation),
		Status:    agent.StatusFailure,
		Reason:    domain.ReasonInvalidArgument,
		Message:   fmt.Sprintf("arguments are not a JSON object: %v", err),
	}
}

// replyResult renders a reply as JSON text. Failures are tool errors so the
// client sees the reason instead of a protocol error.
func replyResult(reply agent.Reply) (*mcp.CallToolResult, error) {
	return jsonResult(reply, reply.Failed())
}

func jsonResult(data interface{}, isError bool) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
		IsError: isError,
	}, nil
}
