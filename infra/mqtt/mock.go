package mqtt

import "sync"

// MockPublisher records published messages for tests.
type MockPublisher struct {
	mu       sync.Mutex
	Messages map[string][][]byte
	Fail     bool
	Err      error
}

// NewMockPublisher creates an empty MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Messages: make(map[string][][]byte)}
}

// Publish records the payload or returns the configured error.
func (m *MockPublisher) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return m.Err
	}
	m.Messages[topic] = append(m.Messages[topic], payload)
	return nil
}

// Close is a no-op.
func (m *MockPublisher) Close() {}

// Topics returns the topics that received at least one message.
func (m *MockPublisher) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Messages))
	for t := range m.Messages {
		out = append(out, t)
	}
	return out
}
