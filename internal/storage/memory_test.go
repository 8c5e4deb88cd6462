package storage

import (
	"context"
	"testing"

	"cryptids/internal/models"
)

func TestMemoryStorage(t *testing.T) {
	s, err := NewMemoryStorage(Config{Seed: true})
	if err != nil {
		t.Fatalf("NewMemoryStorage failed: %v", err)
	}
	defer s.Close()

	runCatalogSuite(t, s)
}

func TestMemoryStorageEmpty(t *testing.T) {
	s, err := NewMemoryStorage(Config{})
	if err != nil {
		t.Fatalf("NewMemoryStorage failed: %v", err)
	}

	cryptids, total, err := s.ListCryptids(context.Background(), Query{Page: Page{Number: 1, Limit: 20}})
	if err != nil {
		t.Fatalf("ListCryptids failed: %v", err)
	}
	if total != 0 || len(cryptids) != 0 {
		t.Errorf("expected empty catalog, got %d of %d", len(cryptids), total)
	}
}

func TestMemoryStorageReturnsCopies(t *testing.T) {
	s, err := NewMemoryStorage(Config{})
	if err != nil {
		t.Fatalf("NewMemoryStorage failed: %v", err)
	}
	s.Load(nil, []*models.Cryptid{{ID: 1, Name: "Nessie", Aliases: []string{"Ness"}}}, nil)

	ctx := context.Background()
	c, err := s.GetCryptid(ctx, 1)
	if err != nil {
		t.Fatalf("GetCryptid failed: %v", err)
	}
	c.Name = "changed"
	c.Aliases[0] = "changed"

	again, _ := s.GetCryptid(ctx, 1)
	if again.Name != "Nessie" || again.Aliases[0] != "Ness" {
		t.Errorf("stored cryptid was modified through a returned copy: %+v", again)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name string
		page Page
		want int
	}{
		{"first page", Page{Number: 1, Limit: 2}, 2},
		{"last partial page", Page{Number: 3, Limit: 2}, 1},
		{"past the end", Page{Number: 4, Limit: 2}, 0},
		{"no limit", Page{Number: 1, Limit: 0}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(paginate(items, tt.page)); got != tt.want {
				t.Errorf("expected %d items, got %d", tt.want, got)
			}
		})
	}
}
