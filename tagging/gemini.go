// Package tagging wraps the external generative model that produces
// descriptive keywords for an image. One remote attempt per invocation,
// no retries.
package tagging

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tagvault/backend/apperrors"
	"github.com/tagvault/backend/config"
	"github.com/tagvault/backend/utils"
)

const (
	httpClientTimeout = 60 * time.Second

	// MaxTags is the upper bound on generated keywords per image.
	MaxTags = 10

	tagPrompt = `You are an expert image analysis tool. Given an image, you will identify objects, scenes, and other relevant details, and generate a list of keywords that can be used to tag the image.

Return a list of keywords suitable for tagging this image, no more than 10 tags.`
)

// Client calls the Gemini generateContent endpoint with structured JSON output.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
	logger     *zap.Logger
}

func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: httpClientTimeout},
		baseURL:    strings.TrimRight(cfg.GeminiBaseURL, "/"),
		model:      cfg.GeminiModel,
		apiKey:     cfg.GeminiAPIKey,
		logger:     logger,
	}
}

// Gemini API request/response structures
type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

type geminiGenConfig struct {
	Temperature      float32     `json:"temperature"`
	MaxOutputTokens  int         `json:"maxOutputTokens"`
	ResponseMimeType string      `json:"responseMimeType,omitempty"`
	ResponseSchema   interface{} `json:"responseSchema,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

// tagsSchema constrains the model output to {"tags": ["..."]}.
var tagsSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"tags": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
	},
	"required": []string{"tags"},
}

type tagsOutput struct {
	Tags []string `json:"tags"`
}

// GenerateTags sends the image to the model and returns at most MaxTags
// keywords. An empty payload fails before any network call is made.
func (c *Client) GenerateTags(ctx context.Context, dataURI string) ([]string, error) {
	if strings.TrimSpace(dataURI) == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "Data URI is required.")
	}

	mime, data, err := utils.ParseDataURI(dataURI)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "Data URI is required.", err)
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{
				Role: "user",
				Parts: []geminiPart{
					{InlineData: &geminiInlineData{
						MimeType: mime,
						Data:     base64.StdEncoding.EncodeToString(data),
					}},
					{Text: tagPrompt},
				},
			},
		},
		GenerationConfig: geminiGenConfig{
			Temperature:      0.2,
			MaxOutputTokens:  1024,
			ResponseMimeType: "application/json",
			ResponseSchema:   tagsSchema,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTaggingFailed, "Failed to generate tags. Please try again.", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTaggingFailed, "Failed to generate tags. Please try again.", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("tag generation request failed", zap.Error(err))
		return nil, apperrors.Wrap(apperrors.KindTaggingFailed, "Failed to generate tags. Please try again.", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTaggingFailed, "Failed to generate tags. Please try again.", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("tag generation returned non-OK status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncateForLog(respBody)))
		return nil, apperrors.New(apperrors.KindTaggingFailed, "Failed to generate tags. Please try again.")
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, apperrors.Wrap(apperrors.KindTaggingFailed, "Failed to generate tags. Please try again.", err)
	}

	text := firstTextPart(parsed)
	if text == "" {
		return nil, apperrors.New(apperrors.KindTaggingFailed, "Failed to generate tags. Please try again.")
	}

	var out tagsOutput
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		c.logger.Warn("tag generation produced unparsable output", zap.String("output", text), zap.Error(err))
		return nil, apperrors.Wrap(apperrors.KindTaggingFailed, "Failed to generate tags. Please try again.", err)
	}

	tags := make([]string, 0, MaxTags)
	for _, tag := range out.Tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		tags = append(tags, trimmed)
		if len(tags) == MaxTags {
			break
		}
	}
	return tags, nil
}

func firstTextPart(resp geminiResponse) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}

func truncateForLog(b []byte) []byte {
	const limit = 512
	if len(b) > limit {
		return b[:limit]
	}
	return b
}
