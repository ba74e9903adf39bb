// Package source opens dataset locations: local paths or http(s) URLs.
package source

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

type FileOpener struct{}

func (FileOpener) Open(_ context.Context, location string) (io.ReadCloser, error) {
	return os.Open(strings.TrimPrefix(location, "file://"))
}

type HTTPOpener struct {
	Client *http.Client
}

func (h HTTPOpener) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 12 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, errors.Errorf("GET %s: http status %s", url, resp.Status)
	}
	return resp.Body, nil
}

// Auto picks HTTP for http:// and https:// locations and the filesystem otherwise.
type Auto struct {
	File FileOpener
	HTTP HTTPOpener
}

func (a Auto) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	l := strings.ToLower(location)
	if strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") {
		return a.HTTP.Open(ctx, location)
	}
	return a.File.Open(ctx, location)
}
