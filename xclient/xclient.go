// Package xclient is a thin wrapper around the X Community Notes API:
// fetching posts eligible for notes, submitting notes in test mode, and
// discovering the allowed misleading_tags enumeration.
package xclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"notewriter-lab/tags"
)

// ClassificationMisleading is the only classification this lab submits.
const ClassificationMisleading = "misinformed_or_potentially_misleading"

// Config holds the API endpoints and bearer credential.
type Config struct {
	BearerToken string
	EligibleURL string
	SubmitURL   string
}

// Client talks to the Community Notes endpoints with bearer auth and
// retrying transport.
type Client struct {
	cfg    Config
	http   *retryablehttp.Client
	logger *slog.Logger

	mu          sync.Mutex
	allowedTags []string
}

func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.EligibleURL == "" || cfg.SubmitURL == "" {
		return nil, errors.New(
			"both X_COMMUNITY_NOTES_ELIGIBLE_URL and X_COMMUNITY_NOTES_SUBMIT_URL must be set")
	}
	if cfg.BearerToken == "" {
		return nil, errors.New("X_BEARER_TOKEN is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = nil

	return &Client{cfg: cfg, http: rc, logger: logger}, nil
}

// APIError is a non-2xx response from the API, with the body preserved for
// diagnostics.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("x api returned %d: %s", e.StatusCode, e.Body)
}

// PostAuthor is the author block of an eligible post record.
type PostAuthor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Handle   string `json:"handle"`
}

// EligiblePost is one raw post record from the eligible-posts endpoint.
type EligiblePost struct {
	ID        string     `json:"id"`
	TweetID   string     `json:"tweet_id"`
	Text      string     `json:"text"`
	Language  string     `json:"lang"`
	CreatedAt string     `json:"created_at"`
	Author    PostAuthor `json:"author"`
}

// ExternalID returns the post identifier regardless of which field the
// endpoint used.
func (p EligiblePost) ExternalID() string {
	if p.ID != "" {
		return p.ID
	}
	return p.TweetID
}

// AuthorHandle returns the author handle regardless of field naming.
func (p EligiblePost) AuthorHandle() string {
	if p.Author.Username != "" {
		return p.Author.Username
	}
	return p.Author.Handle
}

// FetchEligiblePosts returns posts currently eligible for Community Notes.
// The endpoint wraps results in {"data": [...]}; a bare array is accepted
// too.
func (c *Client) FetchEligiblePosts(ctx context.Context, maxResults int, testMode bool) ([]EligiblePost, error) {
	u, err := url.Parse(c.cfg.EligibleURL)
	if err != nil {
		return nil, fmt.Errorf("parse eligible url: %w", err)
	}
	q := u.Query()
	q.Set("max_results", strconv.Itoa(maxResults))
	q.Set("test_mode", strconv.FormatBool(testMode))
	u.RawQuery = q.Encode()

	body, err := c.do(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	raw := body
	if data := gjson.GetBytes(body, "data"); data.IsArray() {
		raw = []byte(data.Raw)
	}

	var posts []EligiblePost
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, fmt.Errorf("decode eligible posts: %w", err)
	}
	return posts, nil
}

// NoteInfo is the info block of a note submission.
type NoteInfo struct {
	Classification     string   `json:"classification"`
	MisleadingTags     []string `json:"misleading_tags"`
	Text               string   `json:"text"`
	TrustworthySources bool     `json:"trustworthy_sources"`
}

// SubmitNotePayload is the /2/notes request body.
type SubmitNotePayload struct {
	Info     NoteInfo `json:"info"`
	PostID   string   `json:"post_id"`
	TestMode bool     `json:"test_mode"`
}

// SubmitNote submits a note and returns the raw API response.
func (c *Client) SubmitNote(ctx context.Context, payload SubmitNotePayload) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, c.cfg.SubmitURL, body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp), nil
}

// AllowedMisleadingTags returns the platform's misleading_tags enumeration,
// discovered once per process via an intentionally invalid probe submission.
// Falls back to the built-in enum when discovery is unavailable.
func (c *Client) AllowedMisleadingTags(ctx context.Context, postID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.allowedTags != nil {
		return c.allowedTags
	}

	discovered := c.discoverMisleadingTags(ctx, postID)
	if len(discovered) == 0 {
		c.logger.Debug("misleading_tags discovery unavailable, using built-in enum")
		discovered = tags.MisleadingTagsEnum
	}
	c.allowedTags = discovered
	return c.allowedTags
}

// discoverMisleadingTags probes /2/notes with an invalid tag and parses the
// "enumeration [a, b, ...]" fragment from the API's error message.
func (c *Client) discoverMisleadingTags(ctx context.Context, postID string) []string {
	if postID == "" {
		return nil
	}
	probe := SubmitNotePayload{
		Info: NoteInfo{
			Classification:     ClassificationMisleading,
			MisleadingTags:     []string{"__enum_probe__"},
			Text:               "enum probe, see https://example.com",
			TrustworthySources: true,
		},
		PostID:   postID,
		TestMode: true,
	}
	body, err := json.Marshal(probe)
	if err != nil {
		return nil
	}

	_, err = c.do(ctx, http.MethodPost, c.cfg.SubmitURL, body)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		// Either the probe unexpectedly succeeded or the call never
		// reached the API; nothing to parse in both cases.
		return nil
	}
	return extractEnumValues(apiErr.Body)
}

func extractEnumValues(errorBody string) []string {
	seen := make(map[string]struct{})
	var values []string

	scan := func(text string) {
		const marker = "enumeration ["
		idx := strings.Index(text, marker)
		if idx == -1 {
			return
		}
		start := idx + len(marker)
		end := strings.Index(text[start:], "]")
		if end == -1 {
			return
		}
		for _, part := range strings.Split(text[start:start+end], ",") {
			val := strings.Trim(strings.TrimSpace(part), `"'`)
			if val == "" {
				continue
			}
			if _, dup := seen[val]; dup {
				continue
			}
			seen[val] = struct{}{}
			values = append(values, val)
		}
	}

	for _, err := range gjson.Get(errorBody, "errors").Array() {
		scan(err.Get("message").String())
		scan(err.Get("detail").String())
	}
	scan(gjson.Get(errorBody, "detail").String())

	return values
}

// do performs one authenticated JSON request and returns the response body,
// mapping non-2xx statuses to *APIError.
func (c *Client) do(ctx context.Context, method, rawURL string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
