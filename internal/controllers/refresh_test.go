package controllers

import (
	"context"
	"testing"
	"time"

	"kinolog/internal/models"
	"kinolog/internal/services/kinopoisk"
)

func newTestRefresh(docs *Documents, client catalogClient, prompter *scriptedPrompter, now time.Time) *RefreshController {
	logger := testLogger()
	threshold := 120 * 24 * time.Hour

	resolver := NewResolverController(docs, client, prompter, threshold, logger)
	resolver.now = func() time.Time { return now }

	refresh := NewRefreshController(docs, client, resolver, threshold, 0, logger)
	refresh.now = func() time.Time { return now }
	return refresh
}

func TestRefreshStaleEntry(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	docs := testDocuments(t)
	docs.Experience["Dune"] = &models.ExperienceRecord{
		KpID:       intPtr(409424),
		Experience: []models.ExperienceEntry{{Date: "2023-01-05", Rating: intPtr(9)}},
	}
	docs.Catalog.Put(&models.CatalogEntry{ID: 409424, Name: "Dune", DateUpdate: "2023-09-01"})

	client := &fakeCatalog{
		entries: map[int]*models.CatalogEntry{
			409424: {ID: 409424, Name: "Dune", Year: 2021},
		},
		images: map[int][]models.ImageDoc{
			409424: {{URL: "https://img.example/1.jpg"}},
		},
	}

	refresh := newTestRefresh(docs, client, &scriptedPrompter{}, now)
	result := refresh.RefreshAll(context.Background())

	if result.Refreshed != 1 {
		t.Fatalf("Expected 1 refreshed entry, got %d", result.Refreshed)
	}

	entry, _ := docs.Catalog.Get(409424)
	if entry.DateUpdate != "2024-06-01" {
		t.Errorf("date_update must be stamped with now, got %s", entry.DateUpdate)
	}
	if entry.DateImageUpdate != "2024-06-01" {
		t.Errorf("date_image_update must be stamped with now, got %s", entry.DateImageUpdate)
	}
	if len(entry.Images) != 1 {
		t.Errorf("Images must be replaced, got %d", len(entry.Images))
	}

	// date_update never regresses.
	before, _ := time.Parse(models.DateFormat, "2023-09-01")
	after, ok := entry.UpdatedAt()
	if !ok || after.Before(before) {
		t.Errorf("date_update regressed: %v", entry.DateUpdate)
	}
}

func TestRefreshKeepsOldImagesWhenImageFetchFails(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	docs := testDocuments(t)
	docs.Experience["Dune"] = &models.ExperienceRecord{
		KpID:       intPtr(409424),
		Experience: []models.ExperienceEntry{{Date: "2023-01-05", Rating: intPtr(9)}},
	}
	docs.Catalog.Put(&models.CatalogEntry{
		ID:              409424,
		Name:            "Dune",
		Images:          []models.ImageDoc{{URL: "https://img.example/old.jpg"}},
		DateUpdate:      "2023-09-01",
		DateImageUpdate: "2023-09-01",
	})

	client := &fakeCatalog{
		entries: map[int]*models.CatalogEntry{
			409424: {ID: 409424, Name: "Dune", Year: 2021},
		},
		imagesErr: &kinopoisk.APIError{StatusCode: 500, Body: "boom"},
	}

	refresh := newTestRefresh(docs, client, &scriptedPrompter{}, now)
	result := refresh.RefreshAll(context.Background())

	if result.Refreshed != 1 {
		t.Fatalf("A failed image fetch alone must not fail the refresh: %+v", result)
	}

	entry, _ := docs.Catalog.Get(409424)
	if len(entry.Images) != 1 || entry.Images[0].URL != "https://img.example/old.jpg" {
		t.Errorf("Previously cached images must be kept, got %+v", entry.Images)
	}
	if entry.DateImageUpdate != "2023-09-01" {
		t.Errorf("date_image_update must not advance without new images, got %s", entry.DateImageUpdate)
	}
	if entry.DateUpdate != "2024-06-01" {
		t.Errorf("The record refresh itself must still be stamped, got %s", entry.DateUpdate)
	}
}

func TestRefreshSkipsFreshEntry(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	docs := testDocuments(t)
	docs.Experience["Dune"] = &models.ExperienceRecord{
		KpID:       intPtr(409424),
		Experience: []models.ExperienceEntry{{Date: "2024-03-01", Rating: intPtr(9)}},
	}
	docs.Catalog.Put(&models.CatalogEntry{ID: 409424, Name: "Dune", DateUpdate: "2024-05-01"})

	client := &fakeCatalog{}
	refresh := newTestRefresh(docs, client, &scriptedPrompter{}, now)
	result := refresh.RefreshAll(context.Background())

	if result.Refreshed != 0 {
		t.Errorf("Fresh entry must not be refreshed, got %d", result.Refreshed)
	}
	if client.calls() != 0 {
		t.Errorf("No remote calls expected, got %d", client.calls())
	}
}

func TestRefreshMissingDateUpdateIsStale(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	docs := testDocuments(t)
	docs.Experience["Dune"] = &models.ExperienceRecord{
		KpID:       intPtr(409424),
		Experience: []models.ExperienceEntry{{Date: "2024-03-01", Rating: intPtr(9)}},
	}
	docs.Catalog.Put(&models.CatalogEntry{ID: 409424, Name: "Dune"})

	client := &fakeCatalog{
		entries: map[int]*models.CatalogEntry{409424: {ID: 409424, Name: "Dune"}},
	}
	refresh := newTestRefresh(docs, client, &scriptedPrompter{}, now)
	result := refresh.RefreshAll(context.Background())

	if result.Refreshed != 1 {
		t.Errorf("Entry without date_update is infinitely stale, got %d refreshed", result.Refreshed)
	}
}

func TestRefreshQuotaCircuitBreaker(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	docs := testDocuments(t)
	// Three stale titles; walk order is sorted, so Alpha goes first.
	for i, title := range []string{"Alpha", "Beta", "Gamma"} {
		id := 100 + i
		docs.Experience[title] = &models.ExperienceRecord{
			KpID:       intPtr(id),
			Experience: []models.ExperienceEntry{{Date: "2023-01-01", Rating: intPtr(7)}},
		}
		docs.Catalog.Put(&models.CatalogEntry{ID: id, Name: title, DateUpdate: "2023-01-01"})
	}

	client := &fakeCatalog{err: kinopoisk.ErrQuotaExceeded}
	refresh := newTestRefresh(docs, client, &scriptedPrompter{}, now)
	result := refresh.RefreshAll(context.Background())

	if !result.QuotaHit {
		t.Fatal("Quota hit must be reported")
	}
	if client.calls() != 1 {
		t.Errorf("No further remote calls after a quota failure, got %d", client.calls())
	}
	if result.Refreshed != 0 {
		t.Errorf("Nothing may be marked refreshed, got %d", result.Refreshed)
	}

	// Entries keep their old dates and stay eligible next run.
	for i := 0; i < 3; i++ {
		entry, _ := docs.Catalog.Get(100 + i)
		if entry.DateUpdate != "2023-01-01" {
			t.Errorf("Entry %d date_update must be untouched, got %s", 100+i, entry.DateUpdate)
		}
	}
}

func TestRefreshQuotaSkipsUnresolvedTitles(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	docs := testDocuments(t)
	docs.Experience["Alpha"] = &models.ExperienceRecord{
		Experience: []models.ExperienceEntry{{Date: "2024-01-01", Rating: intPtr(7)}},
	}
	docs.Experience["Beta"] = &models.ExperienceRecord{
		Experience: []models.ExperienceEntry{{Date: "2024-01-02", Rating: intPtr(6)}},
	}

	client := &fakeCatalog{err: kinopoisk.ErrQuotaExceeded}
	refresh := newTestRefresh(docs, client, &scriptedPrompter{}, now)
	result := refresh.RefreshAll(context.Background())

	if client.calls() != 1 {
		t.Errorf("Only the first title may reach the API, got %d calls", client.calls())
	}
	if result.Unresolved != 2 {
		t.Errorf("Both titles must be left unresolved, got %d", result.Unresolved)
	}
	for _, title := range []string{"Alpha", "Beta"} {
		if docs.Experience[title].KpID != nil {
			t.Errorf("%s must stay unresolved", title)
		}
	}
}

func TestRefreshResolvesUnknownTitle(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	docs := testDocuments(t)
	docs.Experience["Dune"] = &models.ExperienceRecord{
		Experience: []models.ExperienceEntry{{Date: "2024-03-01", Rating: intPtr(9)}},
	}

	client := &fakeCatalog{
		searchResults: map[string][]models.CatalogEntry{
			"Dune": {{ID: 409424, Name: "Дюна", Year: 2021}},
		},
	}
	prompter := &scriptedPrompter{confirms: []bool{true}}
	refresh := newTestRefresh(docs, client, prompter, now)
	result := refresh.RefreshAll(context.Background())

	if result.Resolved != 1 {
		t.Fatalf("Expected 1 resolution, got %d", result.Resolved)
	}
	if docs.Experience["Dune"].KpID == nil || *docs.Experience["Dune"].KpID != 409424 {
		t.Errorf("kp_id must be propagated into the experience record")
	}

	entry, ok := docs.Catalog.Get(409424)
	if !ok {
		t.Fatal("Resolved entry must be cached")
	}
	// Backdated by one threshold period: 2024-06-01 minus 120 days.
	if entry.DateUpdate != "2024-02-02" {
		t.Errorf("date_update must be backdated one threshold period, got %s", entry.DateUpdate)
	}
}
