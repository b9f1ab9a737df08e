package xclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"notewriter-lab/tags"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BearerToken: "test-token",
		EligibleURL: srv.URL + "/2/notes/search/posts_eligible_for_notes",
		SubmitURL:   srv.URL + "/2/notes",
	}, slog.Default())
	require.NoError(t, err)
	return c, srv
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)

	_, err = New(Config{EligibleURL: "http://x", SubmitURL: "http://y"}, nil)
	assert.Error(t, err)
}

func TestFetchEligiblePostsDataWrapper(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "5", r.URL.Query().Get("max_results"))
		assert.Equal(t, "true", r.URL.Query().Get("test_mode"))
		w.Write([]byte(`{"data": [
			{"id": "1844001", "text": "post one", "lang": "en",
			 "author": {"id": "9", "username": "newsdesk"}},
			{"tweet_id": "1844002", "text": "post two",
			 "author": {"handle": "otherdesk"}}
		]}`))
	}))

	posts, err := c.FetchEligiblePosts(context.Background(), 5, true)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "1844001", posts[0].ExternalID())
	assert.Equal(t, "newsdesk", posts[0].AuthorHandle())
	assert.Equal(t, "en", posts[0].Language)
	assert.Equal(t, "1844002", posts[1].ExternalID())
	assert.Equal(t, "otherdesk", posts[1].AuthorHandle())
}

func TestFetchEligiblePostsBareArray(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": "7", "text": "bare"}]`))
	}))

	posts, err := c.FetchEligiblePosts(context.Background(), 1, true)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "7", posts[0].ExternalID())
}

func TestSubmitNotePayloadShape(t *testing.T) {
	var captured []byte
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		captured, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"data": {"note_id": "n-1"}}`))
	}))

	resp, err := c.SubmitNote(context.Background(), SubmitNotePayload{
		Info: NoteInfo{
			Classification:     ClassificationMisleading,
			MisleadingTags:     []string{"factual_error"},
			Text:               "the note text https://example.com/s",
			TrustworthySources: true,
		},
		PostID:   "1844001",
		TestMode: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "n-1", gjson.GetBytes(resp, "data.note_id").String())

	body := gjson.ParseBytes(captured)
	assert.Equal(t, "misinformed_or_potentially_misleading", body.Get("info.classification").String())
	assert.Equal(t, "factual_error", body.Get("info.misleading_tags.0").String())
	assert.True(t, body.Get("info.trustworthy_sources").Bool())
	assert.Equal(t, "1844001", body.Get("post_id").String())
	assert.True(t, body.Get("test_mode").Bool())
}

func TestSubmitNoteAPIError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 400 is terminal for the retrying transport.
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors": [{"message": "bad note"}]}`))
	}))

	_, err := c.SubmitNote(context.Background(), SubmitNotePayload{PostID: "1"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "bad note")
}

func TestAllowedMisleadingTagsDiscovery(t *testing.T) {
	probes := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors": [{"message":
			"misleading_tags values must come from the enumeration [factual_error, missing_important_context, other]"}]}`))
	}))

	got := c.AllowedMisleadingTags(context.Background(), "1844001")
	assert.Equal(t, []string{"factual_error", "missing_important_context", "other"}, got)

	// Second call is served from the cache.
	again := c.AllowedMisleadingTags(context.Background(), "1844001")
	assert.Equal(t, got, again)
	assert.Equal(t, 1, probes)
}

func TestAllowedMisleadingTagsFallback(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors": [{"message": "nothing to parse here"}]}`))
	}))

	got := c.AllowedMisleadingTags(context.Background(), "1844001")
	assert.Equal(t, tags.MisleadingTagsEnum, got)
}

func TestAllowedMisleadingTagsEmptyPostID(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a probe post")
	}))

	got := c.AllowedMisleadingTags(context.Background(), "")
	assert.Equal(t, tags.MisleadingTagsEnum, got)
}

func TestExtractEnumValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			"errors message",
			`{"errors": [{"message": "must be one of the enumeration [a, b, c]"}]}`,
			[]string{"a", "b", "c"},
		},
		{
			"top-level detail",
			`{"detail": "allowed enumeration ['x', 'y']"}`,
			[]string{"x", "y"},
		},
		{
			"no enumeration",
			`{"errors": [{"message": "something else"}]}`,
			nil,
		},
		{
			"not json",
			"plain text error",
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractEnumValues(tt.body))
		})
	}
}
