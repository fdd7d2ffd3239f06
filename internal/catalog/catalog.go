// Package catalog loads a read-only product snapshot from a
// gzip-compressed export, one JSON document per line.
package catalog

import (
	"bufio"
	"context"
	"encoding/json"
	"os"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by Get for unknown product IDs.
var ErrNotFound = errors.New("product not found")

// Product is a single catalog entry.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

// Snapshot is an immutable in-memory view of the catalog.
type Snapshot struct {
	byID  map[string]Product
	order []string
}

// FromProducts builds a snapshot directly from a product list.
// Later duplicates of an ID replace earlier ones.
func FromProducts(products []Product) *Snapshot {
	s := &Snapshot{byID: make(map[string]Product, len(products))}
	for _, p := range products {
		if _, seen := s.byID[p.ID]; !seen {
			s.order = append(s.order, p.ID)
		}
		s.byID[p.ID] = p
	}
	return s
}

// Load reads a gzip-compressed export at path, one product per line.
func Load(ctx context.Context, path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	var products []Product
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var p Product
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, errors.Wrapf(err, "decode product at line %d", len(products)+1)
		}
		if p.ID == "" {
			return nil, errors.Errorf("product at line %d has no id", len(products)+1)
		}
		products = append(products, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "scan %s", path)
	}

	return FromProducts(products), nil
}

// Get returns the product with the given ID.
func (s *Snapshot) Get(id string) (Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

// All returns products in first-seen order.
func (s *Snapshot) All() []Product {
	out := make([]Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len reports the number of products in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.byID)
}
