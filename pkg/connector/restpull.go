package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/vitalink/platform/pkg/canonical"
	"github.com/vitalink/platform/pkg/hospital"
)

// RESTPuller fetches records from the hospital's REST endpoint. The endpoint
// may answer with a JSON array or an object carrying a "records" array; any
// other shape degrades to an empty record set rather than an error, which
// later stages must tolerate.
type RESTPuller struct {
	client *http.Client
}

func (p *RESTPuller) Fetch(ctx context.Context, cfg *hospital.Config) ([]canonical.RawRecord, error) {
	if cfg.API == nil {
		return nil, nil
	}
	url := strings.TrimSpace(cfg.API.URL)
	if url == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ConnectorError{Op: "rest_pull_fetch", Err: err}
	}
	if key := strings.TrimSpace(cfg.API.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ConnectorError{Op: "rest_pull_fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ConnectorError{Op: "rest_pull_fetch", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var data interface{}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &ConnectorError{Op: "rest_pull_fetch", Err: err}
	}

	switch body := data.(type) {
	case []interface{}:
		return asRawRecords(body), nil
	case map[string]interface{}:
		if items, ok := body["records"].([]interface{}); ok {
			return asRawRecords(items), nil
		}
		return nil, nil
	default:
		return nil, nil
	}
}

func asRawRecords(items []interface{}) []canonical.RawRecord {
	records := make([]canonical.RawRecord, 0, len(items))
	for _, item := range items {
		if fields, ok := item.(map[string]interface{}); ok {
			records = append(records, canonical.RawRecord(fields))
		}
	}
	return records
}
