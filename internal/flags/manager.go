// Package flags keeps the operator-controlled fundamental catalyst flag per
// layer. Flags survive restarts through a JSON state file.
package flags

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"LayerSentinel/internal/model"
)

// ErrUnknownLayer is returned when toggling a layer that is not configured.
var ErrUnknownLayer = errors.New("unknown layer")

// Manager guards the flag set. An empty file path keeps flags in memory only.
type Manager struct {
	mu       sync.Mutex
	state    *State
	filePath string
	log      zerolog.Logger
}

// NewManager loads persisted flags and seeds layers without a stored value
// from their configured default. Stored flags for layers no longer
// configured are dropped.
func NewManager(filePath string, layers []model.LayerConfig, log zerolog.Logger) (*Manager, error) {
	state := &State{Flags: map[string]bool{}}
	if filePath != "" {
		loaded, err := LoadState(filePath)
		if err != nil {
			return nil, fmt.Errorf("load flag state: %w", err)
		}
		state = loaded
	}

	seeded := make(map[string]bool, len(layers))
	for _, l := range layers {
		if v, ok := state.Flags[l.Name]; ok {
			seeded[l.Name] = v
			continue
		}
		seeded[l.Name] = l.Fundamental
	}
	state.Flags = seeded

	m := &Manager{
		state:    state,
		filePath: filePath,
		log:      log.With().Str("component", "flags").Logger(),
	}
	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

// Get returns the flag for a layer; unknown layers read as false.
func (m *Manager) Get(layer string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Flags[layer]
}

// Snapshot returns a copy of every flag.
func (m *Manager) Snapshot() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.state.Flags))
	for k, v := range m.state.Flags {
		out[k] = v
	}
	return out
}

// Names returns the configured layer names, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.state.Flags))
	for k := range m.state.Flags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Set toggles a layer's flag and persists the change. If persisting fails
// the previous value stays in effect.
func (m *Manager) Set(layer string, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.state.Flags[layer]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLayer, layer)
	}
	m.state.Flags[layer] = on
	if err := m.save(); err != nil {
		m.state.Flags[layer] = prev
		m.log.Error().Err(err).Str("layer", layer).Msg("failed to save flag state")
		return fmt.Errorf("save flag state: %w", err)
	}
	m.log.Info().Str("layer", layer).Bool("on", on).Msg("fundamental flag updated")
	return nil
}

func (m *Manager) save() error {
	if m.filePath == "" {
		return nil
	}
	return SaveState(m.filePath, m.state)
}
