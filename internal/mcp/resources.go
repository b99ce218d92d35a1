package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/privacyshield/internal/mcp/tools"
	"github.com/usestring/privacyshield/internal/profilefile"
)

// Resource URI scheme: shield://
// Supported URIs:
//   shield://profile/{name}
//   shield://schema/profiles

const (
	profileURIPrefix = "shield://profile/"
	profileSchemaURI = "shield://schema/profiles"
)

// registerResources registers resource templates and handlers.
func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: profileURIPrefix + "{name}",
		Name:        "Privacy Profile",
		Description: "A privacy profile with its fully merged settings. shield_profiles already lists every profile; fetch this for a single one.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.5,
		},
	}, s.handleResourceProfile)

	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         profileSchemaURI,
		Name:        "Profiles File Schema",
		Description: "JSON Schema for the profiles file named by SHIELD_PROFILES_FILE.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"user", "assistant"},
			Priority: 0.2,
		},
	}, s.handleResourceProfileSchema)
}

func (s *Server) handleResourceProfile(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	name, err := parseProfileURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	// Lookup falls back to the default; a resource read must not.
	p := s.deps.Shield.Registry().Lookup(name)
	if p.Name != name {
		return nil, sdkmcp.ResourceNotFoundError(req.Params.URI)
	}
	return toResourceResult(req.Params.URI, tools.NewProfileInfo(p))
}

func (s *Server) handleResourceProfileSchema(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	schema, err := profilefile.Schema()
	if err != nil {
		return nil, fmt.Errorf("building profiles schema: %w", err)
	}
	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{
				URI:      req.Params.URI,
				MIMEType: tools.MimeJSON,
				Text:     string(schema),
			},
		},
	}, nil
}

// parseProfileURI extracts the profile name from a shield://profile/{name} URI.
func parseProfileURI(uri string) (string, error) {
	name, ok := strings.CutPrefix(uri, profileURIPrefix)
	if !ok {
		return "", tools.ErrInvalidInput(fmt.Sprintf("invalid resource URI: %s", uri))
	}
	if name == "" || strings.Contains(name, "/") {
		return "", tools.ErrInvalidInput("profile URI requires a single profile name")
	}
	return name, nil
}

// toResourceResult serializes content to a ReadResourceResult.
func toResourceResult(uri string, content any) (*sdkmcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing resource: %w", err)
	}

	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: tools.MimeJSON,
				Text:     string(data),
			},
		},
	}, nil
}
