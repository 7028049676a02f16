package imagestore

import (
	"context"
	"encoding/base64"
	"sync"
)

// Memory returns data: URLs and remembers them so Delete can be observed; for development and tests.
type Memory struct {
	mu      sync.Mutex
	objects map[string]int
}

func NewMemory() *Memory { return &Memory{objects: make(map[string]int)} }

func (m *Memory) Put(_ context.Context, img *Image) (string, error) {
	u := "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	m.mu.Lock()
	m.objects[u]++
	m.mu.Unlock()
	return u, nil
}

func (m *Memory) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects[url] <= 1 {
		delete(m.objects, url)
		return nil
	}
	m.objects[url]--
	return nil
}

// Count is the number of stored objects.
func (m *Memory) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.objects {
		n += c
	}
	return n
}
