// Package mcpserver exposes the registered tools over the Model Context
// Protocol so an MCP client can drive navigate/query/export against
// stored responses.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/richinex/theseus/tools"
)

// Server wraps an MCP server serving every tool in a registry.
type Server struct {
	server *mcp.Server
}

// New builds a server named after the implementation and registers all
// tools from the registry.
func New(name, version string, registry *tools.Registry) *Server {
	server := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)
	for _, meta := range registry.List() {
		tool, ok := registry.Get(meta.Name)
		if !ok {
			continue
		}
		registerTool(server, tool)
	}
	return &Server{server: server}
}

// Run serves MCP requests on stdio until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect attaches the server to an arbitrary transport. Useful for tests
// with in-memory transports.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, transport, nil)
}

// registerTool adapts a tools.Tool onto the MCP server. Arguments pass
// through as raw JSON; tool failures become protocol tool errors rather
// than transport errors so the caller sees the descriptive message.
func registerTool(server *mcp.Server, tool tools.Tool) {
	meta := tool.Metadata()
	server.AddTool(&mcp.Tool{
		Name:        meta.Name,
		Description: meta.Description,
		InputSchema: inputSchema(meta),
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.Params.Arguments
		if len(args) == 0 {
			args = []byte("{}")
		}

		if err := tool.Validate(args); err != nil {
			return errorResult(err.Error()), nil
		}

		result, err := tool.Execute(ctx, args)
		if err != nil {
			return nil, err
		}
		if !result.Success() {
			return errorResult(result.Error.Error()), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result.Output}},
		}, nil
	})
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
	}
}

// inputSchema converts tool parameter metadata to a JSON schema object.
func inputSchema(meta tools.ToolMetadata) map[string]any {
	properties := make(map[string]any, len(meta.Parameters))
	var required []string
	for _, p := range meta.Parameters {
		properties[p.Name] = map[string]any{
			"type":        p.ParamType,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
