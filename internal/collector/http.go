package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/newthinker/compass/internal/core"
)

// DefaultTimeout is the per-request timeout of collector HTTP clients.
const DefaultTimeout = 10 * time.Second

// NewHTTPClient returns the HTTP client collectors use by default.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// GetJSON issues a GET request and decodes a JSON body into out. Transport
// failures and non-2xx responses are core.ErrProviderFailed.
func GetJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "compass/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("GET %s: unexpected status %d: %s", req.URL.Path, resp.StatusCode, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.WrapError(core.ErrProviderFailed, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
