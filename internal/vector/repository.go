package vector

import "context"

// Point is one colour slot of a variable with its RGBA embedding.
type Point struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// SearchResult is a single match from a similarity search.
type SearchResult struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Repository provides vector storage and similarity search.
type Repository interface {
	// Upsert inserts or updates points.
	Upsert(ctx context.Context, points []Point) error
	// Search finds the top-k points closest to vector.
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	// Close releases resources.
	Close() error
}
