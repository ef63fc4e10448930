// Package mcp exposes an augeas session as Model Context Protocol tools, so
// agents can inspect and edit configuration trees.
package mcp
