// Package services provides the centralized service registry for managerd.
//
// Build wires every domain service from a loaded configuration: the
// key-value backend, the classifier gateway, notifications and push, the
// entity store, the deadline monitor, the chat orchestrator and the session
// gate. Transports (HTTP, MCP, CLI) receive a Registry and use its accessors.
package services
