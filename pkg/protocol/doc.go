// Package protocol defines the JSON-RPC 2.0 message types and the MCP
// (Model Context Protocol, revision 2024-11-05) request, result and
// notification shapes shared by the client, server and transport packages.
package protocol
