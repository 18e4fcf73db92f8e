package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"gurubase-cli/internal/config"
)

type Client struct {
	baseURL     string
	httpClient  *http.Client
	auth        Auth
	fingerprint string
}

// NewClient builds a client for the configured backend. No client-wide
// timeout is set: the answer stream stays open as long as generation runs,
// and callers bound requests through their context.
func NewClient(cfg *config.Config, fingerprint string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.Server, "/"),
		httpClient:  &http.Client{},
		auth:        AuthFor(cfg),
		fingerprint: fingerprint,
	}
}

func (c *Client) setHeaders(req *http.Request, hasBody bool, scoped string) {
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.fingerprint != "" {
		req.Header.Set("X-Fingerprint", c.fingerprint)
	}
	if c.auth != nil {
		c.auth.Apply(req, scoped)
	}
}

// --- Summary ---

// Summary asks the backend to classify and plan a question. Non-2xx replies
// come back as *StatusError.
func (c *Client) Summary(ctx context.Context, req SummaryRequest) (*SummaryResponse, error) {
	var resp SummaryResponse
	if err := c.doJSON(ctx, http.MethodPost, "/"+url.PathEscape(req.GuruType)+"/summary/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Answer stream ---

// StreamAnswer opens the chunked answer stream. The caller owns the returned
// body and must close it.
func (c *Client) StreamAnswer(ctx context.Context, guruType string, reqBody AnswerRequest, scopedToken string) (io.ReadCloser, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+url.PathEscape(guruType)+"/answer/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, true, scopedToken)
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(resp.Body)
		return nil, newStatusError(resp.StatusCode, errBody)
	}
	return resp.Body, nil
}

// --- Slug details ---

func (c *Client) SlugDetails(ctx context.Context, slug, guruType, bingeID, question string) (*SlugDetails, error) {
	params := url.Values{}
	if bingeID != "" {
		params.Set("binge_id", bingeID)
	}
	if question != "" {
		params.Set("question", question)
	}
	path := "/" + url.PathEscape(guruType) + "/question/" + url.PathEscape(slug) + "/"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp SlugDetails
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Binge ---

func (c *Client) CreateBinge(ctx context.Context, guruType, rootSlug string) (string, error) {
	var resp createBingeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/"+url.PathEscape(guruType)+"/follow_up/binge/", createBingeRequest{RootSlug: rootSlug}, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("server returned no binge id")
	}
	return resp.ID, nil
}

func (c *Client) BingeData(ctx context.Context, guruType, bingeID string) (*BingeData, error) {
	params := url.Values{}
	params.Set("binge_id", bingeID)
	var resp BingeData
	if err := c.doJSON(ctx, http.MethodGet, "/"+url.PathEscape(guruType)+"/follow_up/graph/?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FollowUpQuestions asks the backend to generate follow-up suggestions for an
// answered question.
func (c *Client) FollowUpQuestions(ctx context.Context, guruType, bingeID, slug, question string) ([]string, error) {
	reqBody := followUpRequest{BingeID: bingeID, QuestionSlug: slug, Question: question}
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/"+url.PathEscape(guruType)+"/follow_up/examples/", reqBody, &raw); err != nil {
		return nil, err
	}
	return decodeQuestionList(raw), nil
}

// --- Gurus ---

func (c *Client) ListGurus(ctx context.Context) ([]Guru, error) {
	var resp []Guru
	if err := c.doJSON(ctx, http.MethodGet, "/guru_types/", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// --- Generic JSON helper ---

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody interface{}, result interface{}) error {
	var bodyReader io.Reader
	hasBody := reqBody != nil && method != http.MethodGet
	if hasBody {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, hasBody, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}
