package collection

import (
	"go.uber.org/zap"
)

// Manager keeps at most one collection open. Opening or creating another
// closes the current one first, discarding its history.
type Manager struct {
	opts   Options
	active *Collection
}

// NewManager returns a manager that opens collections with opts.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{opts: opts}
}

// Active returns the open collection, or nil.
func (m *Manager) Active() *Collection {
	return m.active
}

// Open closes the active collection, if any, and opens root.
func (m *Manager) Open(root string) (*Collection, error) {
	return m.replace(func() (*Collection, error) { return Open(root, m.opts) })
}

// Create closes the active collection, if any, and creates root.
func (m *Manager) Create(root string) (*Collection, error) {
	return m.replace(func() (*Collection, error) { return Create(root, m.opts) })
}

// Close closes the active collection. It is a no-op when none is open.
func (m *Manager) Close() error {
	if m.active == nil {
		return nil
	}
	c := m.active
	m.active = nil
	return c.Close()
}

func (m *Manager) replace(open func() (*Collection, error)) (*Collection, error) {
	if err := m.Close(); err != nil {
		m.opts.Logger.Warn("closing previous collection", zap.Error(err))
	}
	c, err := open()
	if err != nil {
		return nil, err
	}
	m.active = c
	return c, nil
}
