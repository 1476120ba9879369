package system

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Factory maps registered names to zero-argument constructors so systems
// can be instantiated by name, for data-driven configuration or
// deserialization-driven system graphs. An explicit object, not a
// process-wide singleton: each application owns one.
type Factory struct {
	mu    sync.RWMutex
	log   *zap.Logger
	ctors map[string]func() System
}

func NewFactory(log *zap.Logger) *Factory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Factory{
		log:   log,
		ctors: make(map[string]func() System, 16),
	}
}

// Register binds a name to a constructor. Re-registering an existing name
// is a no-op with a warning.
func (f *Factory) Register(name string, ctor func() System) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.ctors[name]; exists {
		f.log.Warn("system already registered, ignoring", zap.String("system", name))
		return
	}
	f.ctors[name] = ctor
}

// Create instantiates the named system. Returns (nil, false) for unknown
// names.
func (f *Factory) Create(name string) (System, bool) {
	f.mu.RLock()
	ctor, ok := f.ctors[name]
	f.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// Names returns all registered names in sorted order.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.ctors))
	for n := range f.ctors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
