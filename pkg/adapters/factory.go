package adapters

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a new, not yet connected adapter bound to cfg.
type Constructor func(cfg Config) Adapter

// Factory maps engine kinds to adapter constructors.
type Factory struct {
	registry map[Engine]Constructor
	mu       sync.RWMutex
}

// NewFactory returns an empty factory.
func NewFactory() *Factory {
	return &Factory{
		registry: make(map[Engine]Constructor),
	}
}

// Register installs the constructor for an engine, replacing any previous one.
func (f *Factory) Register(engine Engine, constructor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registry[engine] = constructor
}

func (f *Factory) Unregister(engine Engine) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.registry, engine)
}

func (f *Factory) IsRegistered(engine Engine) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.registry[engine]
	return ok
}

// RegisteredEngines returns registered engine kinds in sorted order.
func (f *Factory) RegisteredEngines() []Engine {
	f.mu.RLock()
	defer f.mu.RUnlock()

	engines := make([]Engine, 0, len(f.registry))
	for e := range f.registry {
		engines = append(engines, e)
	}
	sort.Slice(engines, func(i, j int) bool { return engines[i] < engines[j] })
	return engines
}

// Get resolves kind case-insensitively, validates cfg and builds an
// unconnected adapter. cfg.Engine is overwritten with the resolved kind.
func (f *Factory) Get(kind string, cfg Config) (Adapter, error) {
	engine, err := ParseEngine(kind)
	if err != nil {
		return nil, err
	}
	cfg.Engine = engine

	f.mu.RLock()
	constructor, ok := f.registry[engine]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s adapter not registered (available: %v)",
			ErrUnsupportedEngine, engine, f.RegisteredEngines())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return constructor(cfg), nil
}

// Open builds the adapter for cfg.Engine and connects it.
func (f *Factory) Open(ctx context.Context, cfg Config) (Adapter, error) {
	adapter, err := f.Get(string(cfg.Engine), cfg)
	if err != nil {
		return nil, err
	}
	if err := adapter.Connect(ctx); err != nil {
		return nil, err
	}
	return adapter, nil
}

// ========== Global Factory ==========

var globalFactory = NewFactory()

// Register installs a constructor in the global factory.
// Engine packages call it from init():
//
//	func init() {
//	    adapters.Register(adapters.SQLite, func(cfg adapters.Config) adapters.Adapter {
//	        return New(cfg)
//	    })
//	}
func Register(engine Engine, constructor Constructor) {
	globalFactory.Register(engine, constructor)
}

func Unregister(engine Engine) {
	globalFactory.Unregister(engine)
}

func IsRegistered(engine Engine) bool {
	return globalFactory.IsRegistered(engine)
}

func RegisteredEngines() []Engine {
	return globalFactory.RegisteredEngines()
}

// GetAdapter builds an unconnected adapter through the global factory.
func GetAdapter(kind string, cfg Config) (Adapter, error) {
	return globalFactory.Get(kind, cfg)
}

// Open builds and connects an adapter through the global factory.
//
//	adapter, err := adapters.Open(ctx, adapters.Config{
//	    Engine:   adapters.SQLite,
//	    Database: "data/app.db",
//	})
//	if err != nil {
//	    return err
//	}
//	defer adapter.Close(ctx)
func Open(ctx context.Context, cfg Config) (Adapter, error) {
	return globalFactory.Open(ctx, cfg)
}
