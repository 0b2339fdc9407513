package tagging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tagvault/backend/apperrors"
	"github.com/tagvault/backend/config"
	"github.com/tagvault/backend/utils"
)

const testDataURI = "data:image/jpeg;base64,ZmFrZSBpbWFnZQ=="

func newTestClient(baseURL string) *Client {
	return NewClient(config.Config{
		GeminiBaseURL: baseURL,
		GeminiModel:   "test-model",
		GeminiAPIKey:  "test-key",
	}, zap.NewNop())
}

func geminiReply(t *testing.T, w http.ResponseWriter, tags []string) {
	t.Helper()
	text, err := json.Marshal(map[string][]string{"tags": tags})
	require.NoError(t, err)
	resp := geminiResponse{
		Candidates: []geminiCandidate{
			{Content: geminiContent{Parts: []geminiPart{{Text: string(text)}}}},
		},
	}
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestGenerateTagsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 2)
		assert.Equal(t, "image/jpeg", req.Contents[0].Parts[0].InlineData.MimeType)
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)

		geminiReply(t, w, []string{"sky", "orange", "horizon"})
	}))
	defer srv.Close()

	tags, err := newTestClient(srv.URL).GenerateTags(context.Background(), testDataURI)
	require.NoError(t, err)
	assert.Equal(t, []string{"sky", "orange", "horizon"}, tags)
}

func TestGenerateTagsTruncatesToMax(t *testing.T) {
	many := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		many = append(many, fmt.Sprintf("tag%d", i))
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		geminiReply(t, w, many)
	}))
	defer srv.Close()

	tags, err := newTestClient(srv.URL).GenerateTags(context.Background(), testDataURI)
	require.NoError(t, err)
	assert.Len(t, tags, MaxTags)
	assert.Equal(t, "tag0", tags[0])
}

func TestGenerateTagsEmptyPayloadSkipsRemoteCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GenerateTags(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))
	assert.Equal(t, int32(0), calls.Load())
}

func TestGenerateTagsRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GenerateTags(context.Background(), testDataURI)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTaggingFailed, apperrors.KindOf(err))
}

func TestGenerateTagsUnparsableOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := geminiResponse{
			Candidates: []geminiCandidate{
				{Content: geminiContent{Parts: []geminiPart{{Text: "not json at all"}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GenerateTags(context.Background(), testDataURI)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTaggingFailed, apperrors.KindOf(err))
}

func TestGenerateTagsNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(geminiResponse{})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GenerateTags(context.Background(), testDataURI)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTaggingFailed, apperrors.KindOf(err))
}

func TestGenerateTagsDropsBlankEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		geminiReply(t, w, []string{" cat ", "", "  ", "dog"})
	}))
	defer srv.Close()

	tags, err := newTestClient(srv.URL).GenerateTags(context.Background(), utils.EncodeDataURI("image/png", []byte("x")))
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, tags)
}
