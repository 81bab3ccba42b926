// Package input loads a whole profile into memory from a file, stdin or an
// HTTP URL, decompressing .gz and .lz4 inputs on the way.
package input

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"

	"github.com/getsentry/stackvis/internal/errorutil"
)

// Stdin is the source name reading from standard input.
const Stdin = "-"

var (
	stdin io.Reader = os.Stdin

	httpClient = httpclient.NewClient(
		httpclient.WithHTTPTimeout(30*time.Second),
		httpclient.WithRetryCount(2),
	)
)

// Read returns the full content of source. Any failure wraps
// errorutil.ErrUnreadableInput.
func Read(ctx context.Context, source string) ([]byte, error) {
	b, err := read(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errorutil.ErrUnreadableInput, source, err)
	}
	return b, nil
}

func read(ctx context.Context, source string) ([]byte, error) {
	rc, name, err := open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r, err := decompress(rc, name)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// open returns the raw stream along with the name used to pick a
// decompressor.
func open(ctx context.Context, source string) (io.ReadCloser, string, error) {
	if source == Stdin {
		return io.NopCloser(stdin), "", nil
	}
	if isURL(source) {
		u, err := url.Parse(source)
		if err != nil {
			return nil, "", err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, "", err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			if resp != nil {
				resp.Body.Close()
			}
			return nil, "", err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, "", fmt.Errorf("unexpected status %s", resp.Status)
		}
		return resp.Body, u.Path, nil
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, "", err
	}
	return f, source, nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func decompress(r io.Reader, name string) (io.Reader, error) {
	switch {
	case strings.HasSuffix(name, ".gz"):
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return gr, nil
	case strings.HasSuffix(name, ".lz4"):
		return lz4.NewReader(r), nil
	}
	return r, nil
}
