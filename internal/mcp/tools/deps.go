package tools

import (
	"github.com/usestring/privacyshield/internal/config"
	"github.com/usestring/privacyshield/internal/query"
	"github.com/usestring/privacyshield/pkg/shield"
)

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	Shield *shield.Shield
	Config *config.Config
	Query  *query.Engine
}
