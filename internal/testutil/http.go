package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
)

// RoundTripHandler serves requests against an http.Handler without a
// listening socket.
type RoundTripHandler struct {
	Handler http.Handler
}

func (rt *RoundTripHandler) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	rt.Handler.ServeHTTP(rec, req)
	res := rec.Result()
	res.Request = req
	return res, nil
}

// NewInProcessClient wraps handler in an *http.Client usable anywhere a
// real client is.
func NewInProcessClient(handler http.Handler) *http.Client {
	return &http.Client{Transport: &RoundTripHandler{Handler: handler}}
}

// StreamRecorder is a ResponseWriter whose body can be read while the
// handler is still writing; needed for SSE handler tests.
type StreamRecorder struct {
	HeaderMap http.Header
	Code      int
	Body      io.ReadCloser
	writer    io.WriteCloser
}

func NewStreamRecorder() *StreamRecorder {
	r, w := io.Pipe()
	return &StreamRecorder{
		HeaderMap: make(http.Header),
		Code:      http.StatusOK,
		Body:      r,
		writer:    w,
	}
}

func (sr *StreamRecorder) Header() http.Header { return sr.HeaderMap }

func (sr *StreamRecorder) WriteHeader(statusCode int) { sr.Code = statusCode }

func (sr *StreamRecorder) Write(p []byte) (int, error) { return sr.writer.Write(p) }

func (sr *StreamRecorder) Flush() {}

func (sr *StreamRecorder) Close() error { return sr.writer.Close() }

// ReadAll drains and closes a response body.
func ReadAll(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// NewRequest builds an in-process request against path.
func NewRequest(method, path string, body []byte) *http.Request {
	if body == nil {
		body = []byte{}
	}
	return httptest.NewRequest(method, "http://in-process"+path, bytes.NewReader(body))
}
