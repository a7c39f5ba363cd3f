package blob

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store, used for local runs without a bucket.
type Memory struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	baseURL string
}

type memoryObject struct {
	data        []byte
	contentType string
}

func NewMemory(baseURL string) *Memory {
	return &Memory{objects: make(map[string]memoryObject), baseURL: strings.TrimSuffix(baseURL, "/") + "/"}
}

func (m *Memory) Put(_ context.Context, objectPath string, data []byte, opts PutOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectPath] = memoryObject{data: append([]byte(nil), data...), contentType: contentType(data, opts.ContentType)}
	return m.baseURL + objectPath, nil
}

func (m *Memory) Exists(_ context.Context, objectPath string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[objectPath]
	return ok, nil
}

func (m *Memory) Delete(_ context.Context, objectPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[objectPath]; !ok {
		return ErrNotFound
	}
	delete(m.objects, objectPath)
	return nil
}

func (m *Memory) ObjectPath(publicURL string) (string, bool) {
	if !strings.HasPrefix(publicURL, m.baseURL) {
		return "", false
	}
	p := strings.TrimPrefix(publicURL, m.baseURL)
	return p, p != ""
}

// Paths lists stored object paths in lexical order.
func (m *Memory) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.objects))
	for p := range m.objects {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ContentType returns the stored content type of objectPath.
func (m *Memory) ContentType(objectPath string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[objectPath].contentType
}
