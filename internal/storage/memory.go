package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cryptids/internal/models"
)

// MemoryStorage implements the Storage interface using in-memory data structures.
// This provider is ideal for development, testing, and demos where data
// persistence is not required. Data is lost on restart. Cryptids and images
// are kept sorted by id.
type MemoryStorage struct {
	mu              sync.RWMutex
	classifications []*models.Classification
	cryptids        []*models.Cryptid
	byID            map[int64]*models.Cryptid
	images          []*models.Image
}

// NewMemoryStorage creates a new memory-based storage instance, loaded with
// the sample catalog when config.Seed is set.
func NewMemoryStorage(config Config) (*MemoryStorage, error) {
	m := &MemoryStorage{byID: make(map[int64]*models.Cryptid)}
	if config.Seed {
		classifications, cryptids, images := seedCatalog()
		m.Load(classifications, cryptids, images)
	}
	return m, nil
}

// Load replaces the catalog contents.
func (m *MemoryStorage) Load(classifications []*models.Classification, cryptids []*models.Cryptid, images []*models.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.classifications = classifications
	m.cryptids = append([]*models.Cryptid(nil), cryptids...)
	sort.Slice(m.cryptids, func(i, j int) bool { return m.cryptids[i].ID < m.cryptids[j].ID })
	m.images = append([]*models.Image(nil), images...)
	sort.Slice(m.images, func(i, j int) bool { return m.images[i].ID < m.images[j].ID })

	m.byID = make(map[int64]*models.Cryptid, len(cryptids))
	for _, c := range m.cryptids {
		m.byID[c.ID] = c
	}
}

func (m *MemoryStorage) ListCryptids(ctx context.Context, q Query) ([]*models.Cryptid, int, error) {
	return m.queryCryptids("", q)
}

func (m *MemoryStorage) SearchCryptids(ctx context.Context, text string, q Query) ([]*models.Cryptid, int, error) {
	return m.queryCryptids(strings.ToLower(strings.TrimSpace(text)), q)
}

func (m *MemoryStorage) queryCryptids(needle string, q Query) ([]*models.Cryptid, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]*models.Cryptid, 0, len(m.cryptids))
	for _, c := range m.cryptids {
		if matchesQuery(c, needle) && q.Filter.matches(c) {
			matches = append(matches, c)
		}
	}
	sortCryptids(matches, q)
	return copyCryptids(paginate(matches, q.Page)), len(matches), nil
}

func (m *MemoryStorage) RelatedCryptids(ctx context.Context, id int64, limit int) ([]*models.Cryptid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, exists := m.byID[id]
	if !exists {
		return nil, fmt.Errorf("cryptid %d: %w", id, ErrNotFound)
	}
	if limit <= 0 {
		limit = RelatedLimit
	}

	related := make([]*models.Cryptid, 0, limit)
	for _, other := range m.cryptids {
		if len(related) == limit {
			break
		}
		if other.ID != id && other.ClassificationID == c.ClassificationID {
			related = append(related, copyCryptid(other))
		}
	}
	return related, nil
}

func (m *MemoryStorage) GetCryptid(ctx context.Context, id int64) (*models.Cryptid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, exists := m.byID[id]
	if !exists {
		return nil, fmt.Errorf("cryptid %d: %w", id, ErrNotFound)
	}
	return copyCryptid(c), nil
}

func (m *MemoryStorage) ListImages(ctx context.Context, cryptidID int64, page Page) ([]*models.Image, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	images := m.images
	if cryptidID != 0 {
		if _, exists := m.byID[cryptidID]; !exists {
			return nil, 0, fmt.Errorf("cryptid %d: %w", cryptidID, ErrNotFound)
		}
		images = nil
		for _, img := range m.images {
			if img.CryptidID == cryptidID {
				images = append(images, img)
			}
		}
	}

	result := make([]*models.Image, 0)
	for _, img := range paginate(images, page) {
		imgCopy := *img
		result = append(result, &imgCopy)
	}
	return result, len(images), nil
}

func (m *MemoryStorage) Classifications(ctx context.Context) ([]*models.Classification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.Classification, 0, len(m.classifications))
	for _, c := range m.classifications {
		cCopy := *c
		result = append(result, &cCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStorage) Close() error {
	return nil
}

func matchesQuery(c *models.Cryptid, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(c.Name), needle) ||
		strings.Contains(strings.ToLower(c.ShortDescription), needle) {
		return true
	}
	for _, alias := range c.Aliases {
		if strings.Contains(strings.ToLower(alias), needle) {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, page Page) []T {
	start := page.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + page.Limit
	if page.Limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func copyCryptid(c *models.Cryptid) *models.Cryptid {
	cCopy := *c
	cCopy.Aliases = append([]string(nil), c.Aliases...)
	return &cCopy
}

func copyCryptids(in []*models.Cryptid) []*models.Cryptid {
	out := make([]*models.Cryptid, 0, len(in))
	for _, c := range in {
		out = append(out, copyCryptid(c))
	}
	return out
}
