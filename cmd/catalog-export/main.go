// Command catalog-export pulls the full product catalog from the shop
// backend and writes it as a gzip-compressed export, one JSON document per
// line, for offline catalog lookups.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/checkout-flow/internal/catalog"
)

const (
	pageSize     = 200
	maxFetchers  = 4
	fetchTimeout = 30 * time.Second
)

// listResponse is one page of the backend product listing.
type listResponse struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Products   []catalog.Product `json:"products"`
	TotalPages int               `json:"totalPages"`
}

func main() {
	var (
		backendURL string
		outPath    string
	)

	flag.StringVar(&backendURL, "backend-url", "http://localhost:4000", "shop backend base URL")
	flag.StringVar(&outPath, "out", "catalog.gz", "output path for the export")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, backendURL, outPath); err != nil {
		slog.Error("catalog export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog export completed successfully")
}

func run(ctx context.Context, backendURL, outPath string) error {
	u, err := url.Parse(backendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Errorf("backend URL %q must be absolute", backendURL)
	}

	client := &http.Client{Timeout: fetchTimeout}

	// The first page reveals how many pages there are.
	first, err := fetchPage(ctx, client, backendURL, 1)
	if err != nil {
		return errors.Wrap(err, "fetch first page")
	}

	slog.Info("fetching catalog",
		slog.Int("pages", first.TotalPages),
		slog.Int("page_size", pageSize),
	)

	pages := make(map[int][]catalog.Product, first.TotalPages)
	pages[1] = first.Products

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFetchers)
	for page := 2; page <= first.TotalPages; page++ {
		g.Go(func() error {
			resp, err := fetchPage(gctx, client, backendURL, page)
			if err != nil {
				return errors.Wrapf(err, "fetch page %d", page)
			}

			mu.Lock()
			pages[page] = resp.Products
			mu.Unlock()

			slog.Info("page fetched", slog.Int("page", page), slog.Int("products", len(resp.Products)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	total, err := writeExport(outPath, pages)
	if err != nil {
		return errors.Wrap(err, "write export")
	}

	slog.Info("export written", slog.String("path", outPath), slog.Int("products", total))
	return nil
}

// fetchPage requests one page of the product listing.
func fetchPage(ctx context.Context, client *http.Client, backendURL string, page int) (*listResponse, error) {
	reqURL := fmt.Sprintf("%s/api/products?page=%d&limit=%d", backendURL, page, pageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request products")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out listResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	if !out.Success {
		return nil, errors.Errorf("listing rejected: %s", out.Message)
	}
	return &out, nil
}

// writeExport writes all fetched pages in page order, one product per line.
func writeExport(path string, pages map[int][]catalog.Product) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrapf(err, "create %s", path)
	}
	defer func() { _ = f.Close() }()

	gz := pgzip.NewWriter(f)
	enc := json.NewEncoder(gz)

	order := make([]int, 0, len(pages))
	for page := range pages {
		order = append(order, page)
	}
	sort.Ints(order)

	var total int
	for _, page := range order {
		for _, p := range pages[page] {
			if err := enc.Encode(p); err != nil {
				return 0, errors.Wrapf(err, "encode product %s", p.ID)
			}
			total++
		}
	}

	if err := gz.Close(); err != nil {
		return 0, errors.Wrap(err, "close gzip writer")
	}
	return total, f.Close()
}
