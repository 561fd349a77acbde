package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"moodlekit.dev/pkg/moodlekit/internal/naming"
)

const redacted = "REDACTED"

// Call is a remote function path. Values are immutable: Extend returns a new Call and
// never changes the receiver, so a Call can be shared between goroutines.
type Call struct {
	client *Client
	path   []string
}

// Extend returns the Call for path + name.
func (c Call) Extend(name string) Call {
	path := make([]string, len(c.path), len(c.path)+1)
	copy(path, c.path)

	return Call{client: c.client, path: append(path, name)}
}

// Path returns a copy of the accumulated names.
func (c Call) Path() []string {
	return append([]string(nil), c.path...)
}

// Procedure returns the wire function name: the path joined with underscores, then
// converted from lowerCamel to snake_case.
func (c Call) Procedure() string {
	return naming.SnakeCase(strings.Join(c.path, "_"))
}

// Invoke performs the call and decodes the response into a generic value.
func (c Call) Invoke(ctx context.Context, arg any) (any, error) {
	var out any
	if err := c.InvokeInto(ctx, arg, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// InvokeInto performs the call and decodes the response into out. An empty response body
// leaves out untouched.
func (c Call) InvokeInto(ctx context.Context, arg any, out any) error {
	body, err := c.Raw(ctx, arg)
	if err != nil {
		return err
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.Procedure(), err)
	}

	return nil
}

// Invoke performs call and decodes the response as T.
func Invoke[T any](ctx context.Context, call Call, arg any) (T, error) {
	var out T

	err := call.InvokeInto(ctx, arg, &out)

	return out, err
}

// Raw performs the call and returns the undecoded response body.
func (c Call) Raw(ctx context.Context, arg any) ([]byte, error) {
	if len(c.path) == 0 {
		return nil, ErrEmptyPath
	}

	procedure := c.Procedure()
	client := c.client

	form, err := encodeForm(arg, envelope{Token: client.token, Function: procedure, Format: restFormat})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", procedure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", procedure, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	if client.debug {
		logged := make(url.Values, len(form))
		for key, vs := range form {
			logged[key] = vs
		}

		logged["wstoken"] = []string{redacted}

		client.logger.Info("Moodle request", "procedure", procedure, "url", client.endpoint,
			"body", logged.Encode())
	}

	start := time.Now()

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", procedure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", procedure, err)
	}

	if client.debug {
		client.logger.Info("Moodle response", "procedure", procedure, "status", resp.StatusCode,
			"elapsed", time.Since(start), "body", string(body))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &RemoteCallError{Procedure: procedure, StatusCode: resp.StatusCode, Body: body}
	}

	return body, nil
}
