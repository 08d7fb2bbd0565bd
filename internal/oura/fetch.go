package oura

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/spiffcs/vitals/internal/log"
	"github.com/spiffcs/vitals/internal/metrics"
	"github.com/spiffcs/vitals/internal/model"
)

// FetchPage issues one request and decodes a 2xx body into a page.
func FetchPage[T any](ctx context.Context, c *Client, endpoint string, rng model.DateRange, cursor string, tok *oauth2.Token) (*model.Page[T], error) {
	resp, err := c.Get(ctx, endpoint, rng, cursor, tok)
	if err != nil {
		return nil, err
	}
	if apiErr := classify(endpoint, resp); apiErr != nil {
		return nil, apiErr
	}

	var page model.Page[T]
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return nil, &Error{
			Kind:       KindDecoding,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}
	return &page, nil
}

// Drain follows cursors from an empty start until a page has none,
// concatenating records in page order. Any page error aborts the drain and
// no partial result is returned. maxPages > 0 fails the drain with
// ErrPageLimit instead of fetching more than that many pages.
func Drain[T any](ctx context.Context, maxPages int, fetch func(ctx context.Context, cursor string) (*model.Page[T], error)) ([]T, error) {
	var (
		all    []T
		cursor string
		seen   = make(map[string]struct{})
	)

	for pages := 0; ; pages++ {
		if maxPages > 0 && pages >= maxPages {
			return nil, fmt.Errorf("%w: stopped after %d pages", ErrPageLimit, pages)
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}
		all = append(all, page.Data...)

		if !page.HasMore() {
			break
		}
		next := page.Cursor()
		if _, dup := seen[next]; dup {
			return nil, fmt.Errorf("%w: %q", ErrCursorLoop, next)
		}
		seen[next] = struct{}{}
		cursor = next
	}

	if all == nil {
		all = []T{}
	}
	return all, nil
}

// drain runs a retried, paginated fetch of one collection.
func drain[T any](ctx context.Context, c *Client, resource model.ResourceType, rng model.DateRange, tok *oauth2.Token) ([]T, error) {
	endpoint := string(resource)
	records, err := Drain(ctx, c.maxPages, func(ctx context.Context, cursor string) (*model.Page[T], error) {
		page, err := Retry(ctx, c.retrier, func(ctx context.Context) (*model.Page[T], error) {
			return FetchPage[T](ctx, c, endpoint, rng, cursor, tok)
		})
		if err == nil {
			metrics.RecordPage(endpoint)
		}
		return page, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", endpoint, rng, err)
	}
	log.Trace("drained collection", "endpoint", endpoint, "range", rng.String(), "records", len(records))
	return records, nil
}

// DrainReadiness fetches every daily readiness record in rng.
func (c *Client) DrainReadiness(ctx context.Context, rng model.DateRange, tok *oauth2.Token) ([]model.Readiness, error) {
	return drain[model.Readiness](ctx, c, model.ResourceReadiness, rng, tok)
}

// DrainSleep fetches every daily sleep summary in rng.
func (c *Client) DrainSleep(ctx context.Context, rng model.DateRange, tok *oauth2.Token) ([]model.SleepSummary, error) {
	return drain[model.SleepSummary](ctx, c, model.ResourceSleep, rng, tok)
}

// DrainSleepPeriods fetches every detailed sleep period in rng.
func (c *Client) DrainSleepPeriods(ctx context.Context, rng model.DateRange, tok *oauth2.Token) ([]model.SleepPeriod, error) {
	return drain[model.SleepPeriod](ctx, c, model.ResourceSleepPeriod, rng, tok)
}

// DrainHeartRate fetches every heart-rate sample in rng.
func (c *Client) DrainHeartRate(ctx context.Context, rng model.DateRange, tok *oauth2.Token) ([]model.HeartRateSample, error) {
	return drain[model.HeartRateSample](ctx, c, model.ResourceHeartRate, rng, tok)
}
