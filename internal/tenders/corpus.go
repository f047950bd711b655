package tenders

import "context"

// Corpus is the read side used by matching.
type Corpus interface {
	FindAll(ctx context.Context) ([]Tender, error)
	FindByCategory(ctx context.Context, category string) ([]Tender, error)
}

// UpsertResult counts what a load did.
type UpsertResult struct {
	Inserted int
	Updated  int
}

// Loader is the write side used by the tender import.
type Loader interface {
	Upsert(ctx context.Context, batch []Tender) (UpsertResult, error)
}

// Store is a corpus that can also be loaded.
type Store interface {
	Corpus
	Loader
	Get(ctx context.Context, id string) (Tender, error)
}
