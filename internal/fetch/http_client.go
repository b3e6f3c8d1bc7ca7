package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// ClientOptions for the fetch client.
type ClientOptions struct {
	Timeout   time.Duration
	UserAgent string
	// RetryMax is the number of retries after the first attempt. The content
	// gateway runs with 0: a failed read is surfaced, not retried.
	RetryMax int
	Logger   *zap.Logger
}

// Client is a small wrapper around retryablehttp to provide timeouts and UA.
type Client struct {
	inner     *retryablehttp.Client
	userAgent string
}

// NewClient creates a new Client.
func NewClient(opts ClientOptions) *Client {
	r := retryablehttp.NewClient()
	r.RetryMax = opts.RetryMax
	if opts.Timeout > 0 {
		r.HTTPClient.Timeout = opts.Timeout
	}
	// hand the final response back instead of a "giving up" error so callers
	// can look at the status themselves
	r.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Logger != nil {
		r.Logger = leveledLogger{s: opts.Logger.Sugar()}
	} else {
		r.Logger = nil
	}
	return &Client{inner: r, userAgent: opts.UserAgent}
}

// Get issues a GET bound to ctx. The caller closes the body.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.inner.Do(req)
}

// leveledLogger routes retryablehttp's request logging into zap.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}

var _ retryablehttp.LeveledLogger = leveledLogger{}
