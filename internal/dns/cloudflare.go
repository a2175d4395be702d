package dns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const cloudflareBaseURL = "https://api.cloudflare.com/client/v4"

// Cloudflare implements the Provider interface against the Cloudflare v4 API.
type Cloudflare struct {
	apiToken string
	baseURL  string
	client   *http.Client
}

func NewCloudflare(apiToken string) *Cloudflare {
	return &Cloudflare{
		apiToken: apiToken,
		baseURL:  cloudflareBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type cfResponse struct {
	Success    bool            `json:"success"`
	Errors     []cfError       `json:"errors"`
	Messages   []string        `json:"messages"`
	Result     json.RawMessage `json:"result"`
	ResultInfo *cfResultInfo   `json:"result_info"`
}

type cfResultInfo struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

type cfError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (p *Cloudflare) doRequest(ctx context.Context, method, path string, body interface{}) (*cfResponse, error) {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+p.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result cfResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.Success {
		if len(result.Errors) > 0 {
			return nil, fmt.Errorf("Cloudflare error [%d]: %s", result.Errors[0].Code, result.Errors[0].Message)
		}
		return nil, fmt.Errorf("Cloudflare request failed")
	}

	return &result, nil
}

func (p *Cloudflare) VerifyToken(ctx context.Context) error {
	_, err := p.doRequest(ctx, "GET", "/user/tokens/verify", nil)
	return err
}

func (p *Cloudflare) ListZones(ctx context.Context) ([]Zone, error) {
	var zones []Zone
	for page := 1; ; page++ {
		result, err := p.doRequest(ctx, "GET", fmt.Sprintf("/zones?per_page=50&page=%d", page), nil)
		if err != nil {
			return nil, err
		}

		var batch []Zone
		if err := json.Unmarshal(result.Result, &batch); err != nil {
			return nil, fmt.Errorf("failed to parse zones: %w", err)
		}
		zones = append(zones, batch...)

		if result.ResultInfo == nil || page >= result.ResultInfo.TotalPages {
			return zones, nil
		}
	}
}

func (p *Cloudflare) CreateRecord(ctx context.Context, zoneID string, record Record) (*Record, error) {
	body := map[string]interface{}{
		"type":    record.Type,
		"name":    record.Name,
		"content": record.Content,
		"ttl":     record.TTL,
	}
	if record.TTL == 0 {
		body["ttl"] = 1 // 1 = auto
	}

	result, err := p.doRequest(ctx, "POST", "/zones/"+zoneID+"/dns_records", body)
	if err != nil {
		return nil, err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(result.Result, &created); err != nil {
		return nil, fmt.Errorf("failed to parse created record: %w", err)
	}

	record.ID = created.ID
	return &record, nil
}

func (p *Cloudflare) FindRecords(ctx context.Context, zoneID, name string) ([]Record, error) {
	return p.listRecords(ctx, zoneID, url.Values{"name": {name}})
}

func (p *Cloudflare) ListRecords(ctx context.Context, zoneID string) ([]Record, error) {
	return p.listRecords(ctx, zoneID, url.Values{"per_page": {"1000"}})
}

func (p *Cloudflare) listRecords(ctx context.Context, zoneID string, query url.Values) ([]Record, error) {
	result, err := p.doRequest(ctx, "GET", "/zones/"+zoneID+"/dns_records?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var cfRecords []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Type    string `json:"type"`
		Content string `json:"content"`
		TTL     int    `json:"ttl"`
	}
	if err := json.Unmarshal(result.Result, &cfRecords); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}

	records := make([]Record, 0, len(cfRecords))
	for _, r := range cfRecords {
		records = append(records, Record{
			ID:      r.ID,
			Name:    r.Name,
			Type:    r.Type,
			Content: r.Content,
			TTL:     r.TTL,
		})
	}
	return records, nil
}

func (p *Cloudflare) DeleteRecord(ctx context.Context, zoneID, recordID string) error {
	_, err := p.doRequest(ctx, "DELETE", "/zones/"+zoneID+"/dns_records/"+recordID, nil)
	return err
}
