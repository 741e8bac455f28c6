// Package roster is the single source of truth for patient records during a
// session. Every mutation updates the in-memory roster immediately and
// writes the full record set through to a durable backend in the same
// logical operation.
package roster

import "context"

// RecordStore persists the whole patient set as one logical record under a
// fixed key. Reads and writes are whole-set; there is no per-patient
// addressing at this layer.
type RecordStore interface {
	// Get returns the raw payload and whether a record exists.
	Get(ctx context.Context) (string, bool, error)
	// Set overwrites the record wholesale.
	Set(ctx context.Context, payload string) error
}

// MemoryRecordStore is an in-process RecordStore used in tests and as a
// stand-in when no durable backend is reachable.
type MemoryRecordStore struct {
	payload string
	exists  bool

	// Optional fault injection for tests.
	GetErr error
	SetErr error
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{}
}

func (m *MemoryRecordStore) Get(_ context.Context) (string, bool, error) {
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	return m.payload, m.exists, nil
}

func (m *MemoryRecordStore) Set(_ context.Context, payload string) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.payload = payload
	m.exists = true
	return nil
}

// Seed pre-populates the record, bypassing Set's fault injection.
func (m *MemoryRecordStore) Seed(payload string) {
	m.payload = payload
	m.exists = true
}
