package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/listenupapp/goodbooks-api/internal/store"
)

// Source opens the CSV file of a collection.
type Source interface {
	Open(ctx context.Context, c store.Collection) (io.ReadCloser, error)
	String() string
}

// NewSource returns an HTTP source for http(s) locations and a directory source otherwise.
// client may be nil.
func NewSource(location string, client *http.Client) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		if client == nil {
			client = &http.Client{Timeout: 5 * time.Minute}
		}
		return &httpSource{base: strings.TrimSuffix(location, "/"), client: client}
	}
	return dirSource(location)
}

func fileName(c store.Collection) string {
	return string(c) + ".csv"
}

type httpSource struct {
	base   string
	client *http.Client
}

func (s *httpSource) Open(ctx context.Context, c store.Collection) (io.ReadCloser, error) {
	url := s.base + "/" + fileName(c)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, nil
}

func (s *httpSource) String() string { return s.base }

type dirSource string

func (d dirSource) Open(_ context.Context, c store.Collection) (io.ReadCloser, error) {
	path := filepath.Join(string(d), fileName(c))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	return f, nil
}

func (d dirSource) String() string { return string(d) }
