// Package hello implements the greeting demo domain: a handful of
// introductory tools (greet, get_time, calculate) and two informational
// resources, wired into the server's provider interfaces.
package hello

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcplabs/foundations/pkg/protocol"
	"github.com/mcplabs/foundations/pkg/server"
	"github.com/mcplabs/foundations/pkg/utils"
)

// Server identity reported through the hello://server-info resource.
const (
	ServerName        = "hello-server"
	ServerVersion     = "1.0.0"
	ServerDescription = "A simple MCP hello world server"
)

// now is stubbed in tests.
var now = time.Now

// NewToolsProvider returns a tools provider with the greet, get_time and
// calculate tools registered.
func NewToolsProvider() *server.BaseToolsProvider {
	p := server.NewBaseToolsProvider()

	p.RegisterTool(protocol.Tool{
		Name:        "greet",
		Description: "Generate a personalized greeting",
		InputSchema: utils.ObjectSchema(map[string]utils.Property{
			"name":     utils.StringProperty("Name of the person to greet"),
			"language": utils.EnumProperty("Greeting language", "en", "es", "fr").WithDefault("en"),
			"style":    utils.EnumProperty("Greeting style", "formal", "casual", "enthusiastic"),
		}, "name"),
		Categories: []string{"demo"},
	}, greetHandler)

	p.RegisterTool(protocol.Tool{
		Name:        "get_time",
		Description: "Get the current server time",
		InputSchema: utils.ObjectSchema(map[string]utils.Property{}),
		Categories:  []string{"demo"},
	}, getTimeHandler)

	p.RegisterTool(protocol.Tool{
		Name:        "calculate",
		Description: "Perform a basic arithmetic operation",
		InputSchema: utils.ObjectSchema(map[string]utils.Property{
			"operation": utils.EnumProperty("Operation to perform", "add", "subtract", "multiply", "divide"),
			"a":         utils.NumberProperty("First operand"),
			"b":         utils.NumberProperty("Second operand"),
		}, "operation", "a", "b"),
		Categories: []string{"demo"},
	}, calculateHandler)

	return p
}

// NewResourcesProvider returns a resources provider serving
// hello://server-info and hello://sample-data.
func NewResourcesProvider() *server.BaseResourcesProvider {
	p := server.NewBaseResourcesProvider()

	p.RegisterResource(protocol.Resource{
		URI:         "hello://server-info",
		Name:        "Server Information",
		Description: "Information about this server",
		MimeType:    "application/json",
	}, readServerInfo)

	sampleData, err := json.MarshalIndent(sampleData(), "", "  ")
	if err != nil {
		panic(fmt.Sprintf("failed to marshal sample data: %v", err))
	}
	p.RegisterResource(protocol.Resource{
		URI:         "hello://sample-data",
		Name:        "Sample Data",
		Description: "Sample users and projects",
		MimeType:    "application/json",
	}, func(ctx context.Context) ([]protocol.ResourceContents, error) {
		return []protocol.ResourceContents{{
			URI:      "hello://sample-data",
			MimeType: "application/json",
			Text:     string(sampleData),
		}}, nil
	})

	return p
}

type greetArgs struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Style    string `json:"style"`
}

// greetHandler produces a greeting. A style variant overrides the
// language-specific phrasing; languages other than English have a single
// phrasing each.
func greetHandler(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error) {
	var params greetArgs
	if err := utils.JSONToStruct(args, &params); err != nil {
		return protocol.NewToolError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}
	if params.Name == "" {
		return protocol.NewToolError("Missing required parameter: name"), nil
	}

	var greeting string
	switch params.Style {
	case "formal":
		greeting = fmt.Sprintf("Good day, %s. I hope this message finds you well.", params.Name)
	case "casual":
		greeting = fmt.Sprintf("Hey %s! How's it going?", params.Name)
	case "enthusiastic":
		greeting = fmt.Sprintf("Hello there, %s! Great to meet you! 🎉", params.Name)
	case "":
		switch params.Language {
		case "es":
			greeting = fmt.Sprintf("¡Hola, %s! ¡Bienvenido al mundo MCP!", params.Name)
		case "fr":
			greeting = fmt.Sprintf("Bonjour, %s! Bienvenue dans le monde MCP!", params.Name)
		default:
			greeting = fmt.Sprintf("Hello, %s! Welcome to the MCP world!", params.Name)
		}
	default:
		return protocol.NewToolError(fmt.Sprintf("Unknown style: %s", params.Style)), nil
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{protocol.NewTextContent(greeting)},
	}, nil
}

func getTimeHandler(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error) {
	t := now().UTC()
	return protocol.NewToolResult(map[string]interface{}{
		"current_time":   t.Format(time.RFC3339),
		"unix_timestamp": t.Unix(),
		"formatted_time": t.Format("2006-01-02 15:04:05"),
		"timezone":       "UTC",
	})
}

type calculateArgs struct {
	Operation string   `json:"operation"`
	A         *float64 `json:"a"`
	B         *float64 `json:"b"`
}

func calculateHandler(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error) {
	var params calculateArgs
	if err := utils.JSONToStruct(args, &params); err != nil {
		return protocol.NewToolError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}
	if params.Operation == "" || params.A == nil || params.B == nil {
		return protocol.NewToolError("Missing required parameters: operation, a, b"), nil
	}

	a, b := *params.A, *params.B
	var result float64
	switch params.Operation {
	case "add":
		result = a + b
	case "subtract":
		result = a - b
	case "multiply":
		result = a * b
	case "divide":
		if b == 0 {
			return protocol.NewToolError("Division by zero"), nil
		}
		result = a / b
	default:
		return protocol.NewToolError(fmt.Sprintf("Unknown operation: %s", params.Operation)), nil
	}

	return protocol.NewToolResult(map[string]interface{}{
		"operation": params.Operation,
		"operands":  []float64{a, b},
		"result":    result,
		"timestamp": now().UTC().Format(time.RFC3339),
	})
}

func readServerInfo(ctx context.Context) ([]protocol.ResourceContents, error) {
	info := map[string]interface{}{
		"name":         ServerName,
		"version":      ServerVersion,
		"description":  ServerDescription,
		"capabilities": []string{"tools", "resources"},
		"resources":    []string{"hello://server-info", "hello://sample-data"},
		"timestamp":    now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, err
	}
	return []protocol.ResourceContents{{
		URI:      "hello://server-info",
		MimeType: "application/json",
		Text:     string(data),
	}}, nil
}

// sampleData mirrors the seed data served by hello://sample-data.
func sampleData() map[string]interface{} {
	return map[string]interface{}{
		"users": []map[string]interface{}{
			{"id": 1, "name": "Alice", "role": "developer"},
			{"id": 2, "name": "Bob", "role": "designer"},
			{"id": 3, "name": "Charlie", "role": "manager"},
		},
		"projects": []map[string]interface{}{
			{"id": 1, "name": "MCP Demo", "status": "active"},
			{"id": 2, "name": "AI Assistant", "status": "planning"},
		},
	}
}
