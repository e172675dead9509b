package vibrio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// Session is an HTTP client pinned to a single server's base address. All
// request paths are relative and resolved against that base. A Session is
// safe for concurrent use; each request is an independent round-trip with no
// shared mutable request state.
type Session struct {
	// BaseURL is the server's base address, e.g. "http://localhost:8080"
	BaseURL string

	// Client is the underlying HTTP client
	Client *http.Client
}

// NewSession creates a Session bound to the given base address.
func NewSession(baseURL string) *Session {
	return &Session{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{},
	}
}

// Response holds the outcome of one request: the status code and the fully
// read body.
type Response struct {
	// StatusCode is the HTTP status code
	StatusCode int
	// Body is the complete response body
	Body []byte
}

// JSON decodes the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Text returns the response body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// File is one part of a multipart upload.
type File struct {
	// Field is the form field name, e.g. "beatmap" or "replay"
	Field string
	// Content is the file contents
	Content io.Reader
}

// Get issues a GET request for path with the given query parameters.
func (s *Session) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return s.do(ctx, http.MethodGet, path, query, "", nil)
}

// Delete issues a DELETE request for path.
func (s *Session) Delete(ctx context.Context, path string) (*Response, error) {
	return s.do(ctx, http.MethodDelete, path, nil, "", nil)
}

// Post issues a POST request for path. When files are given the body is
// multipart/form-data with one part per file.
func (s *Session) Post(ctx context.Context, path string, query url.Values, files ...File) (*Response, error) {
	if len(files) == 0 {
		return s.do(ctx, http.MethodPost, path, query, "", nil)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.Field, f.Field)
		if err != nil {
			return nil, fmt.Errorf("encoding %s part: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("encoding %s part: %w", f.Field, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body: %w", err)
	}

	return s.do(ctx, http.MethodPost, path, query, mw.FormDataContentType(), &buf)
}

func (s *Session) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader) (*Response, error) {
	u := s.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response: %w", method, path, err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// Close releases idle connections held by the session. In-flight requests
// are unaffected.
func (s *Session) Close() {
	s.Client.CloseIdleConnections()
}
