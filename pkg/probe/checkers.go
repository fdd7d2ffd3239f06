package probe

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
)

// HTTPPing returns a Func that issues a GET against url and reports the
// target unreachable on connection errors or 5xx responses. Other status
// codes count as reachable: a 404 still proves the host is up.
func HTTPPing(client *http.Client, url string) Func {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errors.Wrap(err, "create request")
		}

		resp, err := client.Do(req)
		if err != nil {
			return errors.Wrap(err, "ping")
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		if resp.StatusCode >= http.StatusInternalServerError {
			return errors.Errorf("status %d from %s", resp.StatusCode, url)
		}
		return nil
	}
}
