package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hcengineering/platform-sub028/pkg/core"
	"github.com/hcengineering/platform-sub028/pkg/logger"
	"github.com/hcengineering/platform-sub028/pkg/storage"
	"github.com/hcengineering/platform-sub028/pkg/storage/null"
)

// AdapterManagerConfig maps domains to named adapters. Domains absent from
// DomainAdapters are served by DefaultAdapter.
type AdapterManagerConfig struct {
	DomainAdapters map[core.Domain]string
	DefaultAdapter string
	Factories      map[string]storage.Factory
}

// AdapterManager resolves a domain to a live adapter instance, instantiating
// adapters lazily and marking domains "in use" on first write. The in-use set
// is the only cross-request shared mutable state inside the pipeline; it is
// append-only, so concurrent marking needs nothing beyond a presence check
// under a mutex.
type AdapterManager struct {
	cfg    AdapterManagerConfig
	logger logger.Logger

	mu       sync.Mutex
	adapters map[string]storage.Adapter // GUARDED_BY(mu), lazily built
	inUse    map[core.Domain]bool       // GUARDED_BY(mu), append-only
}

// NewAdapterManager validates the configuration: the default adapter and
// every mapped adapter name must have a factory.
func NewAdapterManager(cfg AdapterManagerConfig, log logger.Logger) (*AdapterManager, error) {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	if _, ok := cfg.Factories[cfg.DefaultAdapter]; !ok {
		return nil, fmt.Errorf("default adapter %q has no factory", cfg.DefaultAdapter)
	}
	for domain, name := range cfg.DomainAdapters {
		if _, ok := cfg.Factories[name]; !ok {
			return nil, fmt.Errorf("adapter %q serving domain %q has no factory", name, domain)
		}
	}
	return &AdapterManager{
		cfg:      cfg,
		logger:   log,
		adapters: make(map[string]storage.Adapter),
		inUse:    make(map[core.Domain]bool),
	}, nil
}

// GetAdapterName returns the name of the adapter physically serving a
// domain. Multiple domains may share one adapter.
func (m *AdapterManager) GetAdapterName(domain core.Domain) string {
	if name, ok := m.cfg.DomainAdapters[domain]; ok {
		return name
	}
	return m.cfg.DefaultAdapter
}

// GetAdapter resolves a domain to its adapter. With markInUse set, the
// domain is recorded as live and, exactly once, the adapter is given the
// chance to provision domain-level resources. Without markInUse, a domain
// never written to resolves to the discarding adapter, so reads of untouched
// domains cost nothing.
func (m *AdapterManager) GetAdapter(ctx context.Context, domain core.Domain, markInUse bool) (storage.Adapter, error) {
	name := m.GetAdapterName(domain)

	m.mu.Lock()
	if !markInUse && !m.inUse[domain] {
		m.mu.Unlock()
		return null.New(), nil
	}
	firstUse := markInUse && !m.inUse[domain]
	if firstUse {
		m.inUse[domain] = true
	}
	adapter, err := m.getByNameLocked(ctx, name)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if firstUse {
		if p, ok := adapter.(storage.Provisioner); ok {
			if err := p.EnsureDomain(ctx, domain); err != nil {
				return nil, fmt.Errorf("provision domain %q: %w", domain, err)
			}
		}
		m.logger.DebugWithContext(ctx, "domain marked in use",
			zap.String("domain", string(domain)), zap.String("adapter", name))
	}
	return adapter, nil
}

// GetAdapterByName resolves an adapter by name, instantiating it if needed.
func (m *AdapterManager) GetAdapterByName(ctx context.Context, name string) (storage.Adapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getByNameLocked(ctx, name)
}

func (m *AdapterManager) getByNameLocked(ctx context.Context, name string) (storage.Adapter, error) {
	if adapter, ok := m.adapters[name]; ok {
		return adapter, nil
	}
	factory, ok := m.cfg.Factories[name]
	if !ok {
		return nil, fmt.Errorf("adapter not provided: %s", name)
	}
	adapter, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("instantiate adapter %q: %w", name, err)
	}
	m.adapters[name] = adapter
	m.logger.InfoWithContext(ctx, "adapter instantiated", zap.String("adapter", name))
	return adapter, nil
}

// Close closes every instantiated adapter.
func (m *AdapterManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for name, adapter := range m.adapters {
		if err := adapter.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close adapter %q: %w", name, err)
		}
	}
	m.adapters = make(map[string]storage.Adapter)
	return firstErr
}
