package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndListRecent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	records := []Record{
		{Source: "https://a.example/", Slug: "a.example", Domain: "a.example", Kind: KindLookup, Status: StatusSucceeded, Score: 42},
		{Source: "https://b.example/", Slug: "b.example", Domain: "b.example", Kind: KindAnalyze, Status: StatusSucceeded, Score: 87},
		{Source: "https://c.example/", Slug: "c.example", Domain: "c.example", Kind: KindLookup, Status: StatusFailed, Message: "Report not found yet. Try again soon."},
	}
	for _, r := range records {
		if err := db.InsertRecord(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.ListRecent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	// Newest first.
	if got[0].Source != "https://c.example/" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].Message == "" {
		t.Fatal("failure message not persisted")
	}
	if got[0].OccurredAt.IsZero() {
		t.Fatal("occurred_at not parsed")
	}
}

func TestListRecentLimit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := db.InsertRecord(ctx, Record{Source: "https://x.example/", Slug: "x.example", Domain: "x.example", Kind: KindLookup, Status: StatusSucceeded}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.ListRecent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("limit ignored, got %d records", len(got))
	}
}

func TestInsertRejectsBadKind(t *testing.T) {
	db := openTestDB(t)
	err := db.InsertRecord(context.Background(), Record{Source: "s", Slug: "s", Domain: "d", Kind: "poll", Status: StatusSucceeded})
	if err == nil {
		t.Fatal("expected CHECK constraint error for bad kind")
	}
}

func TestGetDomainStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seed := []Record{
		{Source: "https://a.example/", Slug: "a.example", Domain: "a.example", Kind: KindLookup, Status: StatusSucceeded, Score: 40},
		{Source: "https://a.example/x", Slug: "a.example_x", Domain: "a.example", Kind: KindAnalyze, Status: StatusSucceeded, Score: 60},
		{Source: "https://a.example/y", Slug: "a.example_y", Domain: "a.example", Kind: KindLookup, Status: StatusFailed, Message: "nope"},
		{Source: "https://b.example/", Slug: "b.example", Domain: "b.example", Kind: KindLookup, Status: StatusSucceeded, Score: 10},
	}
	for _, r := range seed {
		if err := db.InsertRecord(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := db.GetDomainStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 domains, got %+v", stats)
	}

	a := stats[0]
	if a.Domain != "a.example" || a.Lookups != 2 || a.Analyses != 1 {
		t.Fatalf("a.example stats: %+v", a)
	}
	if a.LastScore != 60 {
		t.Fatalf("a.example last score = %v, want most recent succeeded score", a.LastScore)
	}
}
