package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sakif/medremind/internal/apperror"
)

// maxErrorBody caps how much of a non-2xx body is drained before closing.
const maxErrorBody = 4 << 10

// Do sends a JSON request to the backend and decodes a JSON response.
//
//   - in (if non-nil) is encoded as the request body.
//   - out (if non-nil) receives the decoded 2xx response body.
//   - A non-2xx status returns *apperror.RemoteError carrying the status.
//   - A transport failure or timeout returns *apperror.NetworkError.
//
// path is relative to the endpoint, e.g. "/users". Do does not check the
// connection state; callers run EnsureConnected first.
func (g *Guard) Do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.request(ctx, g.baseURL(ctx), method, path, in, out)
}

// baseURL returns the endpoint the last successful connect used, or the
// configured one when there has not been a connect since the last Reset.
func (g *Guard) baseURL(ctx context.Context) string {
	g.mu.Lock()
	base := g.base
	g.mu.Unlock()
	if base != "" {
		return base
	}
	return g.Endpoint(ctx)
}

func (g *Guard) request(ctx context.Context, base, method, path string, in, out any) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("connection: encoding %s body: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return fmt.Errorf("connection: building %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return &apperror.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return &apperror.RemoteError{Status: resp.StatusCode, Method: method, Path: path}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return &apperror.NetworkError{Op: op, Err: err}
		}
		return fmt.Errorf("connection: decoding %s response: %w", op, err)
	}
	return nil
}
