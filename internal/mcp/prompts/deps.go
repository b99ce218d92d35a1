// Package prompts contains MCP prompt implementations for the privacy shield.
package prompts

// Config holds configuration needed by prompts.
type Config struct {
	DefaultProfile string
	Profiles       []string
}
