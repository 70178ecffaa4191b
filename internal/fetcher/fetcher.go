package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"mspro-labs/stock-watch/internal/config"
	"mspro-labs/stock-watch/internal/core/errx"
	"mspro-labs/stock-watch/internal/logx"
	"mspro-labs/stock-watch/internal/models"
)

// Getter retrieves the raw availability document.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// HTTPGetter performs a single GET. Timeouts are whatever Client carries.
type HTTPGetter struct {
	Client *http.Client
}

func (g HTTPGetter) Get(ctx context.Context, url string) ([]byte, error) {
	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// NewGetter picks the transport named in the watch config.
func NewGetter(cfg config.Watch) Getter {
	if cfg.Transport == "browser" {
		return BrowserGetter{Timeout: cfg.BrowserTimeout}
	}
	return HTTPGetter{}
}

// Fetcher retrieves current stock for the configured stores and products.
type Fetcher struct {
	cfg    config.Watch
	getter Getter
}

func New(cfg config.Watch, getter Getter) *Fetcher {
	return &Fetcher{cfg: cfg, getter: getter}
}

// Fetch downloads the country's availability document and filters it.
func (f *Fetcher) Fetch(ctx context.Context) (models.Snapshot, error) {
	url, err := f.cfg.URL()
	if err != nil {
		return nil, err
	}

	logger := logx.With("fetcher")
	logger.Info().Str("url", url).Msg("fetching availability")
	body, err := f.getter.Get(ctx, url)
	if err != nil {
		return nil, errx.Upstream("fetch availability", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errx.Upstream("parse availability", err)
	}

	snap := Filter(doc, f.cfg.StoreIDs(), f.cfg.ProductIDs())
	logger.Debug().Interface("stock", snap).Msg("filtered stock")
	return snap, nil
}

// Filter keeps only the stores and products of interest. Every configured
// store appears in the result, with an empty mapping when the upstream
// document has nothing for it. Per-store values that are not strings (the
// document also carries metadata) are skipped.
func Filter(doc map[string]json.RawMessage, stores []models.StoreID, products []models.ProductID) models.Snapshot {
	snap := make(models.Snapshot, len(stores))
	for _, store := range stores {
		found := make(map[models.ProductID]models.Status)
		snap[store] = found

		raw, ok := doc[string(store)]
		if !ok {
			continue
		}
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			logx.Debug().Str("store", string(store)).Msg("store entry is not an object, skipping")
			continue
		}
		for _, product := range products {
			val, ok := entries[string(product)]
			if !ok {
				continue
			}
			var status string
			if err := json.Unmarshal(val, &status); err != nil {
				continue
			}
			found[product] = models.ParseStatus(status)
		}
	}
	return snap
}
