package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
	"github.com/varmayadav12345678-cell/quicklead/internal/useragent"
)

const maxResponseBytes = 2 * 1024 * 1024

// HTTPClient is the plain (non-browser) page fetching collaborator
// used by the shallow website pass.
type HTTPClient interface {
	Get(ctx context.Context, url string, timeout time.Duration) (int, string, error)
}

type plainClient struct {
	client *http.Client
	agents *useragent.Rotator
}

func NewHTTPClient(agents *useragent.Rotator) HTTPClient {
	return &plainClient{
		client: &http.Client{},
		agents: agents,
	}
}

func (c *plainClient) Get(ctx context.Context, url string, timeout time.Duration) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", fmt.Errorf("%s: %v: %w", url, err, domain.ErrConnection)
	}
	req.Header.Set("User-Agent", c.agents.Next())

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, "", fmt.Errorf("%s: %w", url, domain.ErrNavigationTimeout)
		}
		return 0, "", fmt.Errorf("%s: %v: %w", url, err, domain.ErrConnection)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("%s: %v: %w", url, err, domain.ErrConnection)
	}
	return resp.StatusCode, string(body), nil
}
