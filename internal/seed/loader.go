package seed

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
	"golang.org/x/sync/errgroup"
)

// Catalog is the document format of a seed source
type Catalog struct {
	Restaurants []models.Restaurant `json:"restaurants"`
	Products    []models.Product    `json:"products"`
}

// Saver stores catalog entries. Both repositories and the cached catalog satisfy it.
type Saver interface {
	SaveRestaurant(ctx context.Context, restaurant models.Restaurant) error
	SaveProduct(ctx context.Context, product models.Product) error
}

// Stats summarizes a completed load
type Stats struct {
	Sources     int
	Restaurants int
	Products    int
}

// Loader reads catalog documents from local files or http(s) URLs.
// Sources ending in ".gz" are gunzipped.
type Loader struct {
	client *http.Client
}

// NewLoader creates a loader; a nil client gets a default with a generous timeout
func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Loader{client: client}
}

// Load fetches all sources concurrently and saves them in source order, so
// later sources override earlier ones. Nothing is saved if any source fails
// to fetch or parse; a failing save stops the load part way.
func (l *Loader) Load(ctx context.Context, sources []string, saver Saver) (Stats, error) {
	if len(sources) == 0 {
		return Stats{}, fmt.Errorf("no sources provided")
	}

	catalogs := make([]Catalog, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, source := range sources {
		i, source := i, source
		g.Go(func() error {
			catalog, err := l.fetch(gctx, source)
			if err != nil {
				return fmt.Errorf("failed to load source %d (%s): %w", i+1, source, err)
			}
			catalogs[i] = catalog
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	stats := Stats{Sources: len(sources)}
	// Restaurants first so products never reference a missing restaurant
	for _, catalog := range catalogs {
		for _, restaurant := range catalog.Restaurants {
			if err := saver.SaveRestaurant(ctx, restaurant); err != nil {
				return stats, fmt.Errorf("save restaurant %d: %w", restaurant.ID, err)
			}
			stats.Restaurants++
		}
	}
	for _, catalog := range catalogs {
		for _, product := range catalog.Products {
			if err := saver.SaveProduct(ctx, product); err != nil {
				return stats, fmt.Errorf("save product %d: %w", product.ID, err)
			}
			stats.Products++
		}
	}
	return stats, nil
}

func (l *Loader) fetch(ctx context.Context, source string) (Catalog, error) {
	var (
		body io.ReadCloser
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, err = l.download(ctx, source)
	} else {
		body, err = os.Open(source)
	}
	if err != nil {
		return Catalog{}, err
	}
	defer body.Close()

	var r io.Reader = body
	if strings.HasSuffix(source, ".gz") {
		gzReader, err := gzip.NewReader(body)
		if err != nil {
			return Catalog{}, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		r = gzReader
	}

	return parseCatalog(r)
}

func (l *Loader) download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// parseCatalog decodes a catalog document and checks the fields every entry needs
func parseCatalog(r io.Reader) (Catalog, error) {
	var catalog Catalog
	if err := json.NewDecoder(r).Decode(&catalog); err != nil {
		return Catalog{}, fmt.Errorf("error reading catalog: %w", err)
	}

	for _, restaurant := range catalog.Restaurants {
		if restaurant.ID <= 0 {
			return Catalog{}, fmt.Errorf("restaurant %q has invalid id %d", restaurant.Name, restaurant.ID)
		}
		if restaurant.ShippingCosts.IsNegative() {
			return Catalog{}, fmt.Errorf("restaurant %d has negative shipping costs", restaurant.ID)
		}
	}
	for _, product := range catalog.Products {
		if product.ID <= 0 || product.RestaurantID <= 0 {
			return Catalog{}, fmt.Errorf("product %q has invalid ids", product.Name)
		}
		if product.Price.IsNegative() {
			return Catalog{}, fmt.Errorf("product %d has negative price", product.ID)
		}
	}
	return catalog, nil
}
