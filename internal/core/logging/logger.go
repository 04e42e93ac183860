package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component creates a new logger with a component identifier.
// Uses the "cmp" key for consistency with zerolog conventions.
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger()
}

// Install makes l the global logger with the context hook attached, so every
// Component logger created afterwards carries session and item fields.
func Install(l zerolog.Logger) {
	log.Logger = l.Hook(ContextHook{})
}
