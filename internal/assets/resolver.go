package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/brunocserra/extincor-pdf-function/internal/config"
)

// Asset is one photo ready for embedding: fetched, transcoded and named.
type Asset struct {
	SourceURL   string
	Filename    string
	Data        []byte
	ContentType string
}

// Result is the outcome of resolving a batch of photo URLs. Individual
// failures are skipped rather than failing the batch; Skipped reports how
// many were lost so the assembler can surface the count.
type Result struct {
	Assets  []Asset
	Skipped int
}

// Resolver fetches photo URLs and transcodes them into bounded-width JPEGs.
type Resolver struct {
	client      *http.Client
	maxWidth    int
	quality     int
	concurrency int
}

func NewResolver(cfg config.ImagesConfig) *Resolver {
	concurrency := cfg.FetchConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Resolver{
		client:      &http.Client{Timeout: cfg.FetchTimeout},
		maxWidth:    cfg.MaxWidth,
		quality:     cfg.JPEGQuality,
		concurrency: concurrency,
	}
}

// Resolve processes every URL, fetching concurrently but assigning the
// sequential filenames (img_01.jpg, img_02.jpg, ...) over the successful
// fetches in input order, so naming is deterministic regardless of how the
// fetches interleave.
func (r *Resolver) Resolve(ctx context.Context, urls []string) Result {
	slots := make([]*Asset, len(urls))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.concurrency)
	for i, url := range urls {
		i, url := i, url
		eg.Go(func() error {
			data, err := r.fetch(gctx, url)
			if err != nil {
				slog.Error("photo fetch failed, skipping asset", "url", url, "error", err)
				return nil
			}
			out, err := transcodeJPEG(data, r.maxWidth, r.quality)
			if err != nil {
				slog.Error("photo transcode failed, skipping asset", "url", url, "error", err)
				return nil
			}
			slog.Info("photo optimized", "url", url, "inBytes", len(data), "outBytes", len(out))
			slots[i] = &Asset{SourceURL: url, Data: out, ContentType: "image/jpeg"}
			return nil
		})
	}
	// goroutines absorb their own failures, so Wait cannot error
	_ = eg.Wait()

	var res Result
	for _, a := range slots {
		if a == nil {
			res.Skipped++
			continue
		}
		a.Filename = fmt.Sprintf("img_%02d.jpg", len(res.Assets)+1)
		res.Assets = append(res.Assets, *a)
	}
	return res
}

func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download photo: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo body: %w", err)
	}
	return data, nil
}
