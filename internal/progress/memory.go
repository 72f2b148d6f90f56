package progress

import "sync"

// MemoryPort is a Port backed by a map. It does not survive the process.
type MemoryPort struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryPort returns an empty MemoryPort.
func NewMemoryPort() *MemoryPort {
	return &MemoryPort{data: make(map[string]string)}
}

func (m *MemoryPort) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryPort) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryPort) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
