package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tagvault/backend/apperrors"
	"github.com/tagvault/backend/config"
	"github.com/tagvault/backend/utils"
)

// FetchedImage is the result of loading a remote image: a self-describing
// data URI plus a file name derived from the source URL.
type FetchedImage struct {
	DataURI  string `json:"dataUri"`
	FileName string `json:"fileName"`
}

// Fetcher downloads remote images, validates their type and size, and
// converts them into data URIs for the upload pipeline.
type Fetcher struct {
	client *http.Client
	logger *zap.Logger
}

func NewFetcher(logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// FetchImage downloads the image at rawURL. The URL must be absolute, the
// response must declare a JPEG or PNG content type, and the body must not
// exceed the 2 MiB ceiling. The size check happens after the body is fully
// read, so the response is always drained.
func (f *Fetcher) FetchImage(ctx context.Context, rawURL string) (*FetchedImage, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, apperrors.New(apperrors.KindInvalidInput, "A valid URL is required.")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "A valid URL is required.", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("remote image fetch failed", zap.String("url", parsed.String()), zap.Error(err))
		return nil, apperrors.Wrap(apperrors.KindFetchError, "Failed to load image from URL.", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.New(apperrors.KindFetchError,
			fmt.Sprintf("Failed to fetch image: %d", resp.StatusCode))
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !utils.IsAcceptedImageMime(contentType) {
		// still drain the body so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, apperrors.New(apperrors.KindUnsupportedType, "URL must point to a PNG or JPEG image.")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindFetchError, "Failed to load image from URL.", err)
	}
	if len(body) > config.MaxImageBytes {
		return nil, apperrors.New(apperrors.KindPayloadTooLarge, "File is too large. Maximum size is 2MB.")
	}

	return &FetchedImage{
		DataURI:  utils.EncodeDataURI(contentType, body),
		FileName: deriveFileName(parsed, contentType),
	}, nil
}

// deriveFileName takes the final URL path segment, strips path-unsafe
// characters, and appends an extension matching the validated content type.
func deriveFileName(u *url.URL, contentType string) string {
	ext := utils.ExtensionForMime(contentType)

	segments := strings.Split(u.Path, "/")
	last := ""
	if len(segments) > 0 {
		last = segments[len(segments)-1]
	}
	if last == "" {
		return "image." + ext
	}

	base := utils.SanitizeBaseName(utils.BaseNameWithoutExt(last))
	if base == "" {
		base = "image"
	}
	return base + "." + ext
}
