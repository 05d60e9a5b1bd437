// Package health scores how ready the local environment is to run the
// playground: formatter engine, run history, clipboard and configuration.
package health

import (
	"fmt"
	"time"
)

// Environment holds the facts gathered about the local setup.
type Environment struct {
	EngineFound   bool          // engine binary resolved on PATH
	EngineWorks   bool          // a smoke format returned without error
	EngineLatency time.Duration // duration of the smoke format
	EngineError   string

	HistoryEnabled bool
	HistoryOK      bool // store opened and migrated
	HistoryError   string

	ClipboardAvailable bool
	BaseURLValid       bool

	// BasePortMismatch describes a local base URL whose port is not the
	// serve port. Links made by 'serve' would then miss the server.
	BasePortMismatch string
	ConfigFile       bool // a config file was found and read
}

// HealthScore represents the computed health of an environment.
type HealthScore struct {
	Total     int
	Engine    int // 0-40
	Speed     int // 0-10
	History   int // 0-20
	Clipboard int // 0-10
	Links     int // 0-15
	Config    int // 0-5
	Problems  []string
}

// Healthy reports whether the playground can format at all.
func (h *HealthScore) Healthy() bool { return h.Engine == 40 && h.Links == 15 }

// Scorer computes health scores for environments.
type Scorer struct{}

// NewScorer returns a new health Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes a health score (0-100) for env.
func (s *Scorer) Score(env *Environment) *HealthScore {
	h := &HealthScore{}

	// Engine (40 pts) - found and working
	switch {
	case env.EngineWorks:
		h.Engine = 40
	case env.EngineFound:
		h.Engine = 20
		h.problem("engine found but smoke format failed: %s", env.EngineError)
	default:
		h.problem("engine not found on PATH")
	}

	// Speed (10 pts) - only scored for a working engine
	if env.EngineWorks {
		h.Speed = scoreLatency(env.EngineLatency, 10)
	}

	// History (20 pts) - disabled is a choice, a broken store is not
	switch {
	case !env.HistoryEnabled:
		h.History = 10
	case env.HistoryOK:
		h.History = 20
	default:
		h.problem("run history unavailable: %s", env.HistoryError)
	}

	// Clipboard (10 pts)
	if env.ClipboardAvailable {
		h.Clipboard = 10
	} else {
		h.problem("no clipboard utility; links are printed only")
	}

	// Links (15 pts)
	if env.BaseURLValid {
		h.Links = 15
	} else {
		h.problem("playground.base_url is not an absolute URL")
	}
	if env.BasePortMismatch != "" {
		h.problem("%s", env.BasePortMismatch)
	}

	// Config (5 pts) - defaults work, a file is a bonus
	if env.ConfigFile {
		h.Config = 5
	} else {
		h.Config = 3
	}

	h.Total = h.Engine + h.Speed + h.History + h.Clipboard + h.Links + h.Config
	return h
}

func (h *HealthScore) problem(format string, a ...any) {
	h.Problems = append(h.Problems, fmt.Sprintf(format, a...))
}

// scoreLatency converts a smoke format duration to points.
func scoreLatency(d time.Duration, maxPoints int) int {
	switch {
	case d <= 50*time.Millisecond:
		return maxPoints
	case d <= 200*time.Millisecond:
		return int(float64(maxPoints) * 0.8)
	case d <= 500*time.Millisecond:
		return int(float64(maxPoints) * 0.6)
	case d <= 2*time.Second:
		return int(float64(maxPoints) * 0.3)
	default:
		return int(float64(maxPoints) * 0.1)
	}
}
