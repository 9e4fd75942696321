package foundations

import (
	"github.com/mcplabs/foundations/pkg/client"
	"github.com/mcplabs/foundations/pkg/protocol"
	"github.com/mcplabs/foundations/pkg/server"
	"github.com/mcplabs/foundations/pkg/transport"
)

// Version is the current SDK version.
const Version = "1.0.0"

// ProtocolRevision is the MCP revision this SDK implements.
const ProtocolRevision = protocol.ProtocolRevision

// Convenience re-exports of the core constructors.
var (
	// NewClient creates an MCP client bound to a transport.
	NewClient = client.New

	// NewServer creates an MCP server bound to a transport.
	NewServer = server.New

	// NewStdioTransport creates a newline-delimited JSON-RPC transport
	// over a reader/writer pair.
	NewStdioTransport = transport.NewStdioTransport

	// NewInprocPair creates two directly connected transports for
	// in-process client/server wiring.
	NewInprocPair = transport.NewInprocPair
)
