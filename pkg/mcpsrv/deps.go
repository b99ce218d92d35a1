package mcpsrv

import (
	"github.com/usestring/privacyshield/internal/config"
	"github.com/usestring/privacyshield/internal/query"
	"github.com/usestring/privacyshield/pkg/shield"
)

// Deps contains all dependencies available to custom tools.
// This gives custom tools access to the same shield as builtin tools, so
// their lookups share one rate history and one mode switch.
type Deps struct {
	Shield *shield.Shield
	Config *config.Config
	Query  *query.Engine
}
