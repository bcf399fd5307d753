package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/bitechdev/ResolveGrid/pkg/common"
	"github.com/bitechdev/ResolveGrid/pkg/config"
	"github.com/bitechdev/ResolveGrid/pkg/logger"
	"github.com/bitechdev/ResolveGrid/pkg/metadata"
)

// RESTClient talks to grid endpoints that speak the {"request": {...}} envelope.
type RESTClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
}

type ClientOption func(*RESTClient)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(r *RESTClient) { r.http = c }
}

func WithTokenStore(t TokenStore) ClientOption {
	return func(r *RESTClient) { r.tokens = t }
}

func NewRESTClient(baseURL string, opts ...ClientOption) *RESTClient {
	c := &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRESTClientFromConfig builds a client from the client section of the configuration.
func NewRESTClientFromConfig(cfg config.ClientConfig) *RESTClient {
	opts := []ClientOption{}
	if cfg.Timeout > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	if cfg.Token != "" {
		opts = append(opts, WithTokenStore(NewStaticToken(cfg.Token)))
	}
	return NewRESTClient(cfg.BaseURL, opts...)
}

func (c *RESTClient) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// do performs the request and returns the body of a 2xx response.
func (c *RESTClient) do(ctx context.Context, method, path string, body []byte, auth bool) ([]byte, error) {
	target := c.resolve(path)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		injectAuth(req, c.tokens)
	}

	logger.Debug("%s %s", method, target)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(data, "message").String()
		if msg == "" {
			msg = gjson.GetBytes(data, "error.message").String()
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("%s %s: status %d: %s", method, target, resp.StatusCode, msg)
	}
	return data, nil
}

func (c *RESTClient) postJSON(ctx context.Context, path string, payload interface{}, auth bool) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, body, auth)
}

// Grid returns a DataSource posting QueryParams to path.
func (c *RESTClient) Grid(path string, auth bool) DataSource {
	return func(ctx context.Context, params common.QueryParams) (common.GridResponse, error) {
		data, err := c.postJSON(ctx, path, common.Envelope{Request: common.RequestBody{
			Action:      common.ActionGet,
			QueryParams: params,
		}}, auth)
		if err != nil {
			return common.GridResponse{}, err
		}
		return ParseGridResponse(data, params.Limit)
	}
}

// ParseGridResponse reads status, total and records. The total is taken from "total",
// then "count", then "totalCount"; without any of them it falls back to the number of
// records and logs a warning since that undercounts partial pages.
func ParseGridResponse(data []byte, limit int) (common.GridResponse, error) {
	if !gjson.ValidBytes(data) {
		return common.GridResponse{}, fmt.Errorf("invalid JSON in grid response")
	}
	doc := gjson.ParseBytes(data)

	resp := common.GridResponse{
		Status:  doc.Get("status").String(),
		Message: doc.Get("message").String(),
	}
	if doc.Get("error").Type == gjson.True {
		resp.Status = common.StatusError
	}
	if resp.Status == "" {
		resp.Status = common.StatusSuccess
	}

	records, err := parseRecords(doc.Get("records"))
	if err != nil {
		return common.GridResponse{}, err
	}
	resp.Records = records

	totalFound := false
	for _, key := range []string{"total", "count", "totalCount"} {
		if v := doc.Get(key); v.Exists() && v.Type == gjson.Number {
			resp.Total = v.Int()
			totalFound = true
			break
		}
	}
	if !totalFound {
		resp.Total = int64(len(records))
		if resp.Status == common.StatusSuccess {
			logger.Warn("Grid response carries no total/count/totalCount; using record count %d (limit %d)", len(records), limit)
		}
	}

	return resp, nil
}

func parseRecords(v gjson.Result) ([]common.Record, error) {
	if !v.Exists() || v.Type == gjson.Null {
		return []common.Record{}, nil
	}
	if !v.IsArray() {
		return nil, fmt.Errorf("records is not an array")
	}
	out := make([]common.Record, 0)
	var decodeErr error
	v.ForEach(func(_, item gjson.Result) bool {
		var rec common.Record
		if err := json.Unmarshal([]byte(item.Raw), &rec); err != nil {
			decodeErr = fmt.Errorf("failed to decode record: %w", err)
			return false
		}
		out = append(out, rec)
		return true
	})
	return out, decodeErr
}

// Delete posts {"request": {"action": "delete", "recid": ids}}.
func (c *RESTClient) Delete(ctx context.Context, path string, ids []interface{}, auth bool) (common.DeleteResult, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "request.action", common.ActionDelete)
	if err == nil {
		body, err = sjson.SetBytes(body, "request.recid", ids)
	}
	if err != nil {
		return common.DeleteResult{}, fmt.Errorf("failed to encode delete request: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, path, body, auth)
	if err != nil {
		return common.DeleteResult{}, err
	}
	result := common.DeleteResult{
		Status:  gjson.GetBytes(data, "status").String(),
		Message: gjson.GetBytes(data, "message").String(),
	}
	if result.Status == "" {
		result.Status = common.StatusSuccess
	}
	return result, nil
}

// Deleter adapts Delete to the engine's delete callback.
func (c *RESTClient) Deleter(path string, auth bool) func(ctx context.Context, ids []interface{}) (common.DeleteResult, error) {
	return func(ctx context.Context, ids []interface{}) (common.DeleteResult, error) {
		return c.Delete(ctx, path, ids, auth)
	}
}

// LoadRecord posts a form load envelope and returns the raw record.
func (c *RESTClient) LoadRecord(ctx context.Context, path string, env common.Envelope, auth bool) (common.Record, error) {
	data, err := c.postJSON(ctx, path, env, auth)
	if err != nil {
		return nil, err
	}
	if gjson.GetBytes(data, "status").String() == common.StatusError {
		return nil, fmt.Errorf("%s", gjson.GetBytes(data, "message").String())
	}
	raw := gjson.GetBytes(data, "record")
	if !raw.Exists() || !raw.IsObject() {
		return nil, fmt.Errorf("form load response has no record")
	}
	var rec common.Record
	if err := json.Unmarshal([]byte(raw.Raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}

// Saver returns a save callback posting {"request": {"action": "save", "recid", "record"}}.
// Transport and backend failures become SaveResult{Error: true}.
func (c *RESTClient) Saver(path, recidField string, auth bool) func(ctx context.Context, data common.Record, isEdit bool) (common.SaveResult, error) {
	return func(ctx context.Context, data common.Record, isEdit bool) (common.SaveResult, error) {
		req := common.RequestBody{Action: common.ActionSave, Record: data}
		if isEdit {
			req.Recid, _ = data.Get(recidField)
		}
		body, err := c.postJSON(ctx, path, common.Envelope{Request: req}, auth)
		if err != nil {
			return common.SaveResult{Error: true, Message: err.Error()}, nil
		}

		result := common.SaveResult{Message: gjson.GetBytes(body, "message").String()}
		if gjson.GetBytes(body, "status").String() == common.StatusError || gjson.GetBytes(body, "error").Bool() {
			result.Error = true
			return result, nil
		}
		if raw := gjson.GetBytes(body, "record"); raw.IsObject() {
			var rec common.Record
			if err := json.Unmarshal([]byte(raw.Raw), &rec); err == nil {
				result.Record = rec
			}
		}
		return result, nil
	}
}

// LoadOptions resolves a field's option list for the current form data.
func (c *RESTClient) LoadOptions(ctx context.Context, spec *metadata.LoadSpec, data common.Record) ([]common.Option, error) {
	target := spec.ResolveURL(data)
	if target == "" {
		return []common.Option{}, nil
	}
	method := strings.ToUpper(spec.Method)
	if method == "" {
		method = http.MethodPost
	}

	var body []byte
	payload := spec.ResolveData(data)
	if method == http.MethodGet {
		if values, ok := payload.(map[string]interface{}); ok && len(values) > 0 {
			q := url.Values{}
			for k, v := range values {
				q.Set(k, common.ToString(v))
			}
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + q.Encode()
		}
	} else {
		if payload == nil {
			payload = map[string]interface{}{}
		}
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode option request: %w", err)
		}
	}

	resp, err := c.do(ctx, method, target, body, spec.InjectAuth)
	if err != nil {
		return nil, err
	}
	records, err := parseRecords(gjson.GetBytes(resp, "records"))
	if err != nil {
		return nil, err
	}
	return spec.MapRecords(records), nil
}
