package controllers

import (
	"context"
	"errors"
	"testing"
	"time"

	"kinolog/internal/models"
)

func newTestResolver(docs *Documents, client catalogClient, prompter *scriptedPrompter, now time.Time) *ResolverController {
	resolver := NewResolverController(docs, client, prompter, 120*24*time.Hour, testLogger())
	resolver.now = func() time.Time { return now }
	return resolver
}

func TestResolveFromLocalDocuments(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	docs := testDocuments(t)
	docs.Current["Severance"] = &models.CurrentViewing{
		CurrentSeason: 2,
		KpID:          intPtr(1343317),
		InProgress:    true,
	}
	docs.Experience["Severance"] = &models.ExperienceRecord{
		Experience: []models.ExperienceEntry{{Date: "2023-05-10", Rating: intPtr(9), Season: intPtr(1)}},
	}
	docs.Catalog.Put(&models.CatalogEntry{ID: 1343317, Name: "Severance", DateUpdate: "2024-05-01"})

	client := &fakeCatalog{}
	resolver := newTestResolver(docs, client, &scriptedPrompter{}, now)

	id, err := resolver.Resolve(context.Background(), "Severance")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if id != 1343317 {
		t.Errorf("Expected id 1343317, got %d", id)
	}
	if client.calls() != 0 {
		t.Errorf("A locally known id must not hit the API, got %d calls", client.calls())
	}
	if docs.Experience["Severance"].KpID == nil || *docs.Experience["Severance"].KpID != 1343317 {
		t.Error("Resolved id must be propagated into the experience record")
	}
}

func TestResolveConfirmsCachedID(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	docs := testDocuments(t)
	docs.Experience["Dune"] = &models.ExperienceRecord{
		KpID:       intPtr(409424),
		Experience: []models.ExperienceEntry{{Date: "2024-03-01", Rating: intPtr(9)}},
	}

	client := &fakeCatalog{
		entries: map[int]*models.CatalogEntry{
			409424: {ID: 409424, Name: "Дюна", Year: 2021},
		},
	}
	prompter := &scriptedPrompter{confirms: []bool{true}}
	resolver := newTestResolver(docs, client, prompter, now)

	id, err := resolver.Resolve(context.Background(), "Dune")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if id != 409424 {
		t.Errorf("Expected id 409424, got %d", id)
	}
	if client.searchCalls != 0 {
		t.Errorf("A confirmed cached id must skip the search, got %d search calls", client.searchCalls)
	}

	entry, ok := docs.Catalog.Get(409424)
	if !ok {
		t.Fatal("Confirmed entry must be cached")
	}
	if entry.DateUpdate != "2024-02-02" {
		t.Errorf("date_update must be backdated one threshold period, got %s", entry.DateUpdate)
	}
}

func TestResolveRejectedCachedIDFallsBackToSearch(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	docs := testDocuments(t)
	docs.Experience["Dune"] = &models.ExperienceRecord{
		KpID:       intPtr(999),
		Experience: []models.ExperienceEntry{{Date: "2024-03-01", Rating: intPtr(9)}},
	}

	client := &fakeCatalog{
		searchResults: map[string][]models.CatalogEntry{
			"Dune": {
				{ID: 111, Name: "Dune", Year: 1984},
				{ID: 409424, Name: "Дюна", Year: 2021},
			},
		},
	}
	// Reject the cached id, reject the first candidate, accept the second.
	prompter := &scriptedPrompter{confirms: []bool{false, false, true}}
	resolver := newTestResolver(docs, client, prompter, now)

	id, err := resolver.Resolve(context.Background(), "Dune")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if id != 409424 {
		t.Errorf("Expected the second candidate, got %d", id)
	}
	if client.searchCalls != 1 {
		t.Errorf("Expected 1 search call, got %d", client.searchCalls)
	}
	if got := docs.Experience["Dune"].KpID; got == nil || *got != 409424 {
		t.Errorf("The stale id must be replaced in the experience record, got %v", got)
	}
}

func TestResolveDoesNotMutateSearchResults(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	docs := testDocuments(t)
	docs.Experience["Dune"] = &models.ExperienceRecord{
		Experience: []models.ExperienceEntry{{Date: "2024-03-01", Rating: intPtr(9)}},
	}

	results := []models.CatalogEntry{{ID: 409424, Name: "Дюна", Year: 2021}}
	client := &fakeCatalog{
		searchResults: map[string][]models.CatalogEntry{"Dune": results},
		images: map[int][]models.ImageDoc{
			409424: {{URL: "https://img.example/1.jpg"}},
		},
	}
	resolver := newTestResolver(docs, client, &scriptedPrompter{confirms: []bool{true}}, now)

	if _, err := resolver.Resolve(context.Background(), "Dune"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// The client may hand back the same slice on a later memoized search.
	if results[0].DateUpdate != "" || results[0].Images != nil {
		t.Errorf("Adoption must work on a copy, candidate was mutated: %+v", results[0])
	}

	entry, ok := docs.Catalog.Get(409424)
	if !ok || entry.DateUpdate == "" || len(entry.Images) != 1 {
		t.Errorf("The cached copy must carry the adoption state: %+v", entry)
	}
}

func TestResolveAbandoned(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	docs := testDocuments(t)
	docs.Experience["Dune"] = &models.ExperienceRecord{
		Experience: []models.ExperienceEntry{{Date: "2024-03-01", Rating: intPtr(9)}},
	}

	client := &fakeCatalog{
		searchResults: map[string][]models.CatalogEntry{
			"Dune": {{ID: 111, Name: "Dune", Year: 1984}},
		},
	}
	resolver := newTestResolver(docs, client, &scriptedPrompter{confirms: []bool{false}}, now)

	_, err := resolver.Resolve(context.Background(), "Dune")
	if !errors.Is(err, ErrResolutionAbandoned) {
		t.Fatalf("Expected ErrResolutionAbandoned, got %v", err)
	}
	if docs.Experience["Dune"].KpID != nil {
		t.Error("An abandoned title must stay unresolved")
	}
	if len(docs.Catalog) != 0 {
		t.Error("Nothing may be cached for an abandoned title")
	}
}
