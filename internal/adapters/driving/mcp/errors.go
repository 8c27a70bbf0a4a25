// Package mcp provides an MCP (Model Context Protocol) server adapter for codecite.
// It lets AI assistants ask cited questions about the indexed building codes.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
