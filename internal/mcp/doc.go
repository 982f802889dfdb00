// Package mcp exposes the manager over the Model Context Protocol.
//
// Tools are registered with the go-sdk (github.com/modelcontextprotocol/go-sdk/mcp)
// and call the services registry directly. The stdio surface assumes an
// authenticated local operator, so the session gate is not consulted.
package mcp
