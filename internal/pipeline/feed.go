// internal/pipeline/feed.go
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"kc-restaurants/internal/common/config"
	"kc-restaurants/internal/common/errors"
	commonhttp "kc-restaurants/internal/common/http"
	"kc-restaurants/internal/common/retry"
)

// FeedFetcher downloads the municipal license feed CSV.
type FeedFetcher struct {
	http    *commonhttp.Client
	url     string
	retryer *retry.Retryer
}

func NewFeedFetcher(cfg config.FeedConfig, retryer *retry.Retryer) *FeedFetcher {
	return &FeedFetcher{
		http:    commonhttp.NewClient(config.GetDuration(cfg.Timeout)),
		url:     cfg.URL,
		retryer: retryer,
	}
}

// Fetch returns the raw feed body. The caller owns closing the reader.
func (f *FeedFetcher) Fetch(ctx context.Context) (io.ReadCloser, error) {
	var body io.ReadCloser

	err := f.retryer.Do(ctx, "feed.download", func() error {
		req, err := http.NewRequest(http.MethodGet, f.url, nil)
		if err != nil {
			return err
		}

		resp, err := f.http.DoWithContext(ctx, req)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("feed returned %d", resp.StatusCode)
		}

		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, errors.NewFeedDownloadFailedError(err)
	}

	return body, nil
}
