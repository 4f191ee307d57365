package render

import (
	"github.com/rs/zerolog"

	"github.com/jmadderra/stillsplice/internal/engine"
)

// executionContext tracks every artifact staged during one export so they
// can all be released on the way out, whatever the outcome. One context
// per export; never shared.
type executionContext struct {
	logger   zerolog.Logger
	eng      engine.Engine
	staged   []string
	seen     map[string]bool
	released bool
}

func newExecutionContext(logger zerolog.Logger, eng engine.Engine) *executionContext {
	return &executionContext{
		logger: logger,
		eng:    eng,
		seen:   make(map[string]bool),
	}
}

// register records an artifact at write time. Registering the same name
// twice is a no-op; release happens exactly once per name.
func (c *executionContext) register(name string) {
	if c.seen[name] {
		return
	}
	c.seen[name] = true
	c.staged = append(c.staged, name)
}

// releaseAll unstages every registered artifact in reverse order. Release
// errors are logged and swallowed so they cannot mask the export outcome.
func (c *executionContext) releaseAll() {
	if c.released {
		return
	}
	c.released = true

	for i := len(c.staged) - 1; i >= 0; i-- {
		name := c.staged[i]
		if err := c.eng.Unstage(name); err != nil {
			c.logger.Warn().Err(err).Str("artifact", name).Str("stage", string(StageCleanup)).
				Msg("failed to release artifact")
		}
	}
}
