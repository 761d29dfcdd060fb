package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	appLog "rcjcal/internal/log"
	"rcjcal/internal/model"
)

const userAgent = "rcjcal/1.0 (+https://rcja.app/calendar)"

// Client fetches territories and their detailed events from the entry
// system's public API.
type Client struct {
	client  *http.Client
	baseURL string
	now     func() time.Time
}

// NewClient creates a new Client.
//
// baseURL is the public API root, e.g.
// "https://enter.robocupjunior.org.au/api/v1/public". timeout bounds each
// individual request; zero means 15 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		now:     time.Now,
	}
}

// FetchAll fetches the territory list and every territory's events and
// assembles them into one snapshot. Any failure aborts the whole fetch and
// nothing fetched so far is returned.
func (c *Client) FetchAll(ctx context.Context) (*model.Snapshot, error) {
	territories, err := c.FetchTerritories(ctx)
	if err != nil {
		return nil, err
	}

	events := make(map[string][]model.Event, len(territories))
	for _, t := range territories {
		evs, err := c.FetchEvents(ctx, t.Abbreviation)
		if err != nil {
			return nil, err
		}
		events[t.Abbreviation] = evs
	}

	return &model.Snapshot{
		Territories: territories,
		Events:      events,
		FetchedAt:   c.now().UTC(),
	}, nil
}

// FetchTerritories returns the territory list in upstream order.
func (c *Client) FetchTerritories(ctx context.Context) ([]model.Territory, error) {
	var territories []model.Territory
	if err := c.getJSON(ctx, c.baseURL+"/states/", &territories); err != nil {
		return nil, fmt.Errorf("fetch territories: %w", err)
	}
	for _, t := range territories {
		if t.Abbreviation == "" {
			return nil, errors.New("fetch territories: territory without abbreviation")
		}
	}
	return territories, nil
}

// FetchEvents returns the detailed events of one territory, each stamped
// with code as its origin.
func (c *Client) FetchEvents(ctx context.Context, code string) ([]model.Event, error) {
	var raw []model.Event
	if err := c.getJSON(ctx, c.eventsURL(code), &raw); err != nil {
		return nil, fmt.Errorf("fetch events for %s: %w", code, err)
	}

	events := make([]model.Event, 0, len(raw))
	for _, ev := range raw {
		events = append(events, ev.WithOrigin(code))
	}
	return events, nil
}

// FetchRawEvents returns one territory's events exactly as upstream sent
// them, for archiving.
func (c *Client) FetchRawEvents(ctx context.Context, code string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, c.eventsURL(code), &raw); err != nil {
		return nil, fmt.Errorf("fetch events for %s: %w", code, err)
	}
	return raw, nil
}

func (c *Client) eventsURL(code string) string {
	return c.baseURL + "/states/" + url.PathEscape(code) + "/allEventsDetailed"
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return errors.New(resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}

	appLog.Debug("source fetch success", "url", u, "status", resp.StatusCode, "elapsed", time.Since(start))
	return nil
}
