// Package client invokes Moodle web-service functions through the REST endpoint.
//
// A Call accumulates a dotted path such as core.user.getUsers and turns it into the wire
// procedure name core_user_get_users when invoked:
//
//	c, err := client.New(client.Options{BaseURL: "https://moodle.example", Token: token})
//	users, err := client.Invoke[[]User](ctx, c.Path("core", "user", "getUsersByField"), args)
package client

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	restPath   = "/webservice/rest/server.php"
	restFormat = "json"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the site origin, e.g. https://moodle.example.
	BaseURL string
	// Token is the web-service token sent as wstoken.
	Token string
	// Debug logs request bodies (token redacted), response bodies and timings.
	Debug bool
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client holds immutable call configuration and is safe for concurrent use.
type Client struct {
	endpoint   string
	token      string
	debug      bool
	httpClient *http.Client
	logger     *slog.Logger
}

// New validates opts and creates a Client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidOptions)
	}

	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: base URL: %w", ErrInvalidOptions, err)
	}

	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q needs a scheme and a host", ErrInvalidOptions, opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint:   base.String() + restPath,
		token:      opts.Token,
		debug:      opts.Debug,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Root returns a Call with an empty path.
func (c *Client) Root() Call {
	return Call{client: c}
}

// Path returns a Call bound to names.
func (c *Client) Path(names ...string) Call {
	return Call{client: c, path: append([]string(nil), names...)}
}

// ParsePath splits a dotted path such as "core.user.getUsers".
func (c *Client) ParsePath(dotted string) Call {
	var names []string

	for _, name := range strings.Split(dotted, ".") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	return c.Path(names...)
}
