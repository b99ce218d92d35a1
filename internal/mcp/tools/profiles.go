package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/privacyshield/pkg/shield"
)

// ProfilesInput is the input for shield_profiles.
type ProfilesInput struct{}

// ProfilesOutput is the output for shield_profiles.
type ProfilesOutput struct {
	Default  string        `json:"default"`
	Profiles []ProfileInfo `json:"profiles,omitzero"`
}

// ProfileInfo is a profile with its fully merged settings.
type ProfileInfo struct {
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Settings    shield.Settings `json:"settings"`
}

// NewProfileInfo merges p over the default settings.
func NewProfileInfo(p shield.Profile) ProfileInfo {
	return ProfileInfo{
		Name:        p.Name,
		Title:       p.Title,
		Description: p.Description,
		Settings:    p.Settings(),
	}
}

// ToolProfiles lists the registered profiles.
func ToolProfiles(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ProfilesInput) (*sdkmcp.CallToolResult, ProfilesOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ProfilesInput) (*sdkmcp.CallToolResult, ProfilesOutput, error) {
		reg := d.Shield.Registry()
		profiles := reg.List()

		output := ProfilesOutput{
			Default:  reg.Default(),
			Profiles: make([]ProfileInfo, len(profiles)),
		}
		for i, p := range profiles {
			output.Profiles[i] = NewProfileInfo(p)
		}
		return nil, output, nil
	}
}
