// Package page exposes the operations the autopilot performs against the job
// board page through the channel layer.
package page

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"jobpilot/internal/channel"
	"jobpilot/internal/jobs"
)

// Client issues page operations over a channel.Layer.
type Client struct {
	ch *channel.Layer
}

func NewClient(ch *channel.Layer) *Client {
	return &Client{ch: ch}
}

// extractTimeout is generous: a full listing scrape walks every visible card.
const extractTimeout = 30 * time.Second

// ExtractAllJobs scrapes every job posting visible on the page.
func (c *Client) ExtractAllJobs(ctx context.Context) ([]jobs.Posting, error) {
	raw, err := c.ch.Send(ctx, channel.Envelope{Action: "extractAllJobs"}, channel.SendOptions{
		Timeout: extractTimeout,
	})
	if err != nil {
		return nil, err
	}
	var out []jobs.Posting
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode extracted jobs: %w", err)
	}

	// Drop unusable entries and backfill missing dedup keys.
	kept := out[:0]
	for _, p := range out {
		if p.Title == "" && p.Company == "" {
			continue
		}
		if p.Key == "" {
			p.Key = p.FallbackKey()
		}
		kept = append(kept, p)
	}
	return kept, nil
}

// ApplyResult is the page's verdict on one application attempt.
type ApplyResult struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors,omitempty"`
}

// ApplyToJob drives the application flow for one posting. A transport error
// and an unsuccessful result are distinct outcomes; callers treat both as a
// failed application but only the former reflects channel health.
func (c *Client) ApplyToJob(ctx context.Context, p jobs.Posting) (ApplyResult, error) {
	raw, err := c.ch.Send(ctx, channel.Envelope{
		Action:  "applyToJob",
		Payload: map[string]any{"jobData": p},
	}, channel.SendOptions{})
	if err != nil {
		return ApplyResult{}, err
	}
	var out ApplyResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return ApplyResult{}, fmt.Errorf("decode apply result: %w", err)
	}
	return out, nil
}

// CurrentURL reports the page's current location. Used for the source gate
// before a scan.
func (c *Client) CurrentURL(ctx context.Context) (string, error) {
	raw, err := c.ch.Send(ctx, channel.Envelope{Action: "currentUrl"}, channel.SendOptions{})
	if err != nil {
		return "", err
	}
	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode current url: %w", err)
	}
	return out, nil
}
