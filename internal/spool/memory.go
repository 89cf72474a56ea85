package spool

import (
	"bytes"
	"fmt"
	"io"

	"caseline/internal/contacts"
)

// memoryStore keeps spooled exports in memory. Useful for testing;
// entries do not survive a process restart.
type memoryStore struct {
	content map[string][]byte
	queue   []contacts.SpoolEntry
}

// NewMemorySpool creates a new in-memory spool.
// maxSize is the maximum total content size in bytes.
func NewMemorySpool(maxSize int64) contacts.Spool {
	return &exportSpool{
		store:   &memoryStore{content: make(map[string][]byte)},
		maxSize: maxSize,
	}
}

func (m *memoryStore) StoreContent(exportID string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.content[exportID] = data
	return int64(len(data)), nil
}

func (m *memoryStore) RemoveContent(exportID string) {
	delete(m.content, exportID)
}

func (m *memoryStore) OpenContent(exportID string) (io.ReadCloser, error) {
	data, ok := m.content[exportID]
	if !ok {
		return nil, fmt.Errorf("content not found: %s", exportID)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) ContentSize() (int64, error) {
	var total int64
	for _, data := range m.content {
		total += int64(len(data))
	}
	return total, nil
}

func (m *memoryStore) Append(entry contacts.SpoolEntry) error {
	m.queue = append(m.queue, entry)
	return nil
}

func (m *memoryStore) Peek() (*contacts.SpoolEntry, error) {
	if len(m.queue) == 0 {
		return nil, nil
	}
	entry := m.queue[0]
	return &entry, nil
}

func (m *memoryStore) Pop(exportID string) error {
	for i, entry := range m.queue {
		if entry.ExportID == exportID {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("entry not found in queue: %s", exportID)
}

func (m *memoryStore) Len() (int, error) {
	return len(m.queue), nil
}
