// Package complextype exposes the theta sketch column to a host engine's
// complex type registry.
//
// Registration is explicit.  The host calls Register once at startup with
// the Serde built by New; nothing is registered as a side effect of
// importing this package.
package complextype

import (
	"errors"
	"fmt"
	"sync"

	"github.com/brimdata/thetasketch/codec"
	"github.com/brimdata/thetasketch/ingest"
	"github.com/brimdata/thetasketch/theta"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// TypeName is the stable name under which the column type is registered.
const TypeName = "thetaSketch"

var ErrDuplicateType = errors.New("complex type already registered")

// Serde bundles what a host needs to ingest, store, and read the column.
type Serde struct {
	TypeName  string
	Extractor *ingest.Extractor
	Codec     *codec.Codec
}

func New(cfg theta.Config, logger *zap.Logger, reg prometheus.Registerer) (*Serde, error) {
	extractor, err := ingest.NewExtractor(cfg, logger, reg)
	if err != nil {
		return nil, err
	}
	return &Serde{
		TypeName:  TypeName,
		Extractor: extractor,
		Codec:     codec.New(cfg),
	}, nil
}

// Registry is the host's complex type registry.
type Registry interface {
	Register(name string, s *Serde) error
	Lookup(name string) (*Serde, bool)
}

// Register adds s to r under s.TypeName.
func Register(r Registry, s *Serde) error {
	if s == nil || s.Extractor == nil || s.Codec == nil {
		return errors.New("incomplete theta sketch serde")
	}
	if err := r.Register(s.TypeName, s); err != nil {
		return fmt.Errorf("registering %s: %w", s.TypeName, err)
	}
	return nil
}

// MapRegistry is an in-process Registry.  The zero value is ready to use.
type MapRegistry struct {
	mu    sync.RWMutex
	types map[string]*Serde
}

func (m *MapRegistry) Register(name string, s *Serde) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.types[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, name)
	}
	if m.types == nil {
		m.types = make(map[string]*Serde)
	}
	m.types[name] = s
	return nil
}

func (m *MapRegistry) Lookup(name string) (*Serde, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.types[name]
	return s, ok
}
