package providers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/logging"
	"github.com/hashicorp/go-retryablehttp"
)

const maxErrorBody = 4 << 10

// NewHTTPClient returns the retrying client shared by the REST adapters and
// the token refresher. Connection errors, 429 and 5xx responses are retried
// up to retryMax times; the final response is handed back to the caller
// instead of being turned into a generic error.
func NewHTTPClient(timeout time.Duration, retryMax int, logger logging.Logger) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.HTTPClient.Timeout = timeout
	c.RetryMax = retryMax
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if logger != nil {
		c.Logger = logging.Leveled{L: logger.With("module", "http")}
	} else {
		c.Logger = nil
	}
	return c
}

// Do sends req. When the retry budget is exhausted on a bad status the last
// response is returned without error so CheckResponse can classify it.
func Do(c *retryablehttp.Client, req *retryablehttp.Request) (*http.Response, error) {
	resp, err := c.Do(req)
	if resp != nil {
		return resp, nil
	}
	return nil, err
}

// HTTPError is returned when a provider answers with an unexpected status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("provider responded %d: %s", e.StatusCode, e.Body)
}

// IsStatus reports whether err is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == code
}

// CheckResponse returns nil for 2xx responses and an *HTTPError otherwise.
// The body is drained but not closed.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{StatusCode: resp.StatusCode, Body: string(b)}
}

// DrainClose discards what is left of body and closes it so the connection
// can be reused.
func DrainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBody))
	_ = body.Close()
}
