package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"cryptids/internal/models"
)

// runCatalogSuite exercises a backend loaded with the sample catalog.
func runCatalogSuite(t *testing.T, s Storage) {
	ctx := context.Background()

	t.Run("ListCryptids", func(t *testing.T) {
		cryptids, total, err := s.ListCryptids(ctx, Query{Page: Page{Number: 2, Limit: 3}})
		if err != nil {
			t.Fatalf("ListCryptids failed: %v", err)
		}
		if total != 10 {
			t.Errorf("expected total 10, got %d", total)
		}
		var ids []int64
		for _, c := range cryptids {
			ids = append(ids, c.ID)
		}
		if !reflect.DeepEqual(ids, []int64{4, 5, 6}) {
			t.Errorf("expected ids [4 5 6], got %v", ids)
		}
	})

	t.Run("ListCryptidsPastEnd", func(t *testing.T) {
		cryptids, total, err := s.ListCryptids(ctx, Query{Page: Page{Number: 5, Limit: 3}})
		if err != nil {
			t.Fatalf("ListCryptids failed: %v", err)
		}
		if total != 10 || len(cryptids) != 0 {
			t.Errorf("expected empty page of 10, got %d items of %d", len(cryptids), total)
		}
	})

	t.Run("SearchCryptids", func(t *testing.T) {
		tests := []struct {
			query   string
			wantIDs []int64
		}{
			{"nessie", []int64{1}},
			{"LAKE", []int64{8}},
			{"devil", []int64{5}},
			{"hominid", []int64{2}},
			{"%", nil},
			{"no such creature", nil},
		}
		for _, tt := range tests {
			cryptids, total, err := s.SearchCryptids(ctx, tt.query, Query{Page: Page{Number: 1, Limit: 20}})
			if err != nil {
				t.Fatalf("SearchCryptids(%q) failed: %v", tt.query, err)
			}
			var ids []int64
			for _, c := range cryptids {
				ids = append(ids, c.ID)
			}
			if !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("SearchCryptids(%q): expected %v, got %v", tt.query, tt.wantIDs, ids)
			}
			if total != len(tt.wantIDs) {
				t.Errorf("SearchCryptids(%q): expected total %d, got %d", tt.query, len(tt.wantIDs), total)
			}
		}
	})

	t.Run("ListCryptidsFiltered", func(t *testing.T) {
		yes, no := true, false
		tests := []struct {
			name    string
			filter  Filter
			wantIDs []int64
		}{
			{"single classification", Filter{Classifications: []string{"hominid"}}, []int64{2, 3}},
			{"classifications are alternatives", Filter{Classifications: []string{"Aquatic", "Canid"}}, []int64{1, 7, 8, 10}},
			{"fields are combined", Filter{Classifications: []string{"winged entity"}, Statuses: []string{"LEGENDARY"}}, []int64{5, 9}},
			{"threat levels", Filter{ThreatLevels: []string{"high"}}, []int64{6, 10}},
			{"with images", Filter{HasImages: &yes}, []int64{1, 2, 4, 5, 6}},
			{"without images", Filter{HasImages: &no, Statuses: []string{"legendary"}}, []int64{9, 10}},
			{"no match", Filter{Classifications: []string{"cosmic"}}, nil},
		}
		for _, tt := range tests {
			cryptids, total, err := s.ListCryptids(ctx, Query{Filter: tt.filter, Page: Page{Number: 1, Limit: 20}})
			if err != nil {
				t.Fatalf("%s: ListCryptids failed: %v", tt.name, err)
			}
			if ids := cryptidIDs(cryptids); !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.wantIDs, ids)
			}
			if total != len(tt.wantIDs) {
				t.Errorf("%s: expected total %d, got %d", tt.name, len(tt.wantIDs), total)
			}
		}
	})

	t.Run("ListCryptidsSorted", func(t *testing.T) {
		tests := []struct {
			name    string
			query   Query
			wantIDs []int64
		}{
			{"id descending", Query{Descending: true, Page: Page{Number: 1, Limit: 3}}, []int64{10, 9, 8}},
			{"name", Query{Sort: SortByName, Page: Page{Number: 1, Limit: 4}}, []int64{7, 2, 10, 6}},
			{"name descending", Query{Sort: SortByName, Descending: true, Page: Page{Number: 1, Limit: 3}}, []int64{3, 9, 8}},
			{"ties broken by id", Query{Sort: SortByThreatLevel, Descending: true, Page: Page{Number: 1, Limit: 3}}, []int64{3, 4, 5}},
			{"sort within filter", Query{Sort: SortByStatus, Filter: Filter{ThreatLevels: []string{"high"}}, Page: Page{Number: 1, Limit: 20}}, []int64{6, 10}},
		}
		for _, tt := range tests {
			cryptids, _, err := s.ListCryptids(ctx, tt.query)
			if err != nil {
				t.Fatalf("%s: ListCryptids failed: %v", tt.name, err)
			}
			if ids := cryptidIDs(cryptids); !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.wantIDs, ids)
			}
		}
	})

	t.Run("SearchCryptidsFiltered", func(t *testing.T) {
		q := Query{Filter: Filter{Statuses: []string{"legendary"}}, Page: Page{Number: 1, Limit: 20}}
		cryptids, total, err := s.SearchCryptids(ctx, "shuck", q)
		if err != nil {
			t.Fatalf("SearchCryptids failed: %v", err)
		}
		if ids := cryptidIDs(cryptids); !reflect.DeepEqual(ids, []int64{10}) || total != 1 {
			t.Errorf("expected [10] of 1, got %v of %d", ids, total)
		}

		q.Filter.Statuses = []string{"unverified"}
		cryptids, total, err = s.SearchCryptids(ctx, "shuck", q)
		if err != nil {
			t.Fatalf("SearchCryptids failed: %v", err)
		}
		if len(cryptids) != 0 || total != 0 {
			t.Errorf("expected no match, got %v of %d", cryptidIDs(cryptids), total)
		}
	})

	t.Run("RelatedCryptids", func(t *testing.T) {
		related, err := s.RelatedCryptids(ctx, 4, RelatedLimit)
		if err != nil {
			t.Fatalf("RelatedCryptids failed: %v", err)
		}
		if ids := cryptidIDs(related); !reflect.DeepEqual(ids, []int64{5, 9}) {
			t.Errorf("expected [5 9], got %v", ids)
		}

		related, err = s.RelatedCryptids(ctx, 4, 1)
		if err != nil {
			t.Fatalf("RelatedCryptids failed: %v", err)
		}
		if ids := cryptidIDs(related); !reflect.DeepEqual(ids, []int64{5}) {
			t.Errorf("expected [5], got %v", ids)
		}

		related, err = s.RelatedCryptids(ctx, 6, RelatedLimit)
		if err != nil {
			t.Fatalf("RelatedCryptids failed: %v", err)
		}
		if related == nil || len(related) != 0 {
			t.Errorf("expected empty non-nil result, got %#v", related)
		}

		if _, err := s.RelatedCryptids(ctx, 999, RelatedLimit); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetCryptid", func(t *testing.T) {
		c, err := s.GetCryptid(ctx, 3)
		if err != nil {
			t.Fatalf("GetCryptid failed: %v", err)
		}
		if c.Name != "Yeti" || c.Classification != "Hominid" {
			t.Errorf("unexpected cryptid: %+v", c)
		}
		if !reflect.DeepEqual(c.Aliases, []string{"Abominable Snowman", "Meh-Teh"}) {
			t.Errorf("unexpected aliases: %v", c.Aliases)
		}
		if c.HasImages {
			t.Error("Yeti should have no images")
		}

		c, err = s.GetCryptid(ctx, 1)
		if err != nil {
			t.Fatalf("GetCryptid failed: %v", err)
		}
		if !c.HasImages {
			t.Error("Loch Ness Monster should have images")
		}

		c, err = s.GetCryptid(ctx, 4)
		if err != nil {
			t.Fatalf("GetCryptid failed: %v", err)
		}
		if c.Aliases == nil || len(c.Aliases) != 0 {
			t.Errorf("expected empty non-nil aliases, got %#v", c.Aliases)
		}
	})

	t.Run("GetCryptidNotFound", func(t *testing.T) {
		_, err := s.GetCryptid(ctx, 999)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListImages", func(t *testing.T) {
		images, total, err := s.ListImages(ctx, 1, Page{Number: 1, Limit: 20})
		if err != nil {
			t.Fatalf("ListImages failed: %v", err)
		}
		if total != 2 || len(images) != 2 {
			t.Errorf("expected 2 images, got %d of %d", len(images), total)
		}
		for _, img := range images {
			if img.CryptidID != 1 {
				t.Errorf("unexpected image for cryptid %d", img.CryptidID)
			}
		}

		images, total, err = s.ListImages(ctx, 0, Page{Number: 2, Limit: 4})
		if err != nil {
			t.Fatalf("ListImages failed: %v", err)
		}
		if total != 6 || len(images) != 2 {
			t.Errorf("expected 2 images of 6 on page 2, got %d of %d", len(images), total)
		}

		images, total, err = s.ListImages(ctx, 3, Page{Number: 1, Limit: 20})
		if err != nil {
			t.Fatalf("ListImages failed: %v", err)
		}
		if total != 0 || images == nil || len(images) != 0 {
			t.Errorf("expected empty non-nil result, got %#v (total %d)", images, total)
		}
	})

	t.Run("ListImagesUnknownCryptid", func(t *testing.T) {
		_, _, err := s.ListImages(ctx, 999, Page{Number: 1, Limit: 20})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Classifications", func(t *testing.T) {
		classifications, err := s.Classifications(ctx)
		if err != nil {
			t.Fatalf("Classifications failed: %v", err)
		}
		var names []string
		for _, c := range classifications {
			names = append(names, c.Name)
		}
		want := []string{"Aquatic", "Canid", "Hominid", "Reptilian", "Winged Entity"}
		if !reflect.DeepEqual(names, want) {
			t.Errorf("expected %v, got %v", want, names)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := s.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}

func cryptidIDs(cryptids []*models.Cryptid) []int64 {
	var ids []int64
	for _, c := range cryptids {
		ids = append(ids, c.ID)
	}
	return ids
}
