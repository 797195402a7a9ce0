package storage

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/san-kum/dvdm/internal/dynamo"
)

// Memory is an in-process snapshot store. Saved states are copied in and
// out, so callers never share slices with it.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string]dynamo.State
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]dynamo.State)}
}

func (m *Memory) Save(field, label string, u dynamo.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[field] == nil {
		m.data[field] = make(map[string]dynamo.State)
	}
	m.data[field][label] = u.Clone()
	return nil
}

func (m *Memory) Load(field, label string) (dynamo.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.data[field][label]
	if !ok {
		return nil, fmt.Errorf("%w: %s snapshot t=%s", ErrNotFound, field, label)
	}
	return u.Clone(), nil
}

// Labels lists the labels of a field in increasing time order.
func (m *Memory) Labels(field string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	labels := make([]string, 0, len(m.data[field]))
	for label := range m.data[field] {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, _ := strconv.ParseFloat(labels[i], 64)
		b, _ := strconv.ParseFloat(labels[j], 64)
		return a < b
	})
	return labels
}
