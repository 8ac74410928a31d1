package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/eras/internal/domain/model"
	"github.com/okian/eras/internal/domain/types"
)

// client wraps http.Client for the eras API.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{http: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

func (c *client) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

func (c *client) post(ctx context.Context, path string, records []model.ParticipationRecord, out any) error {
	body := struct {
		Records []types.Record `json:"records"`
	}{Records: toWire(records)}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(raw))
	}
	return json.Unmarshal(raw, out)
}

func (c *client) annotate(ctx context.Context, records []model.ParticipationRecord) (types.Annotation, error) {
	var out types.Annotation
	err := c.post(ctx, "/annotate", records, &out)
	return out, err
}

func (c *client) extract(ctx context.Context, records []model.ParticipationRecord) (types.Extraction, error) {
	var out types.Extraction
	err := c.post(ctx, "/periods/extract", records, &out)
	return out, err
}

func toWire(records []model.ParticipationRecord) []types.Record {
	out := make([]types.Record, len(records))
	for i, r := range records {
		year := r.Year
		out[i] = types.Record{
			EntityCode: r.EntityCode,
			Year:       &year,
			RegionHint: r.RegionHint,
			AthleteID:  r.AthleteID,
			Medal:      r.Medal,
		}
	}
	return out
}
