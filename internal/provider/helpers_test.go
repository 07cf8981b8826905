package provider_test

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

type cannedResponse struct {
	status int
	body   string
}

type capture struct {
	method string
	path   string
	body   []byte
}

// fakeTransport replays canned responses in order, repeating the last one,
// and records every request it sees.
type fakeTransport struct {
	mu        sync.Mutex
	responses []cannedResponse
	captured  []capture
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var b []byte
	if req.Body != nil {
		b, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captured = append(f.captured, capture{method: req.Method, path: req.URL.Path, body: b})
	r := f.responses[len(f.responses)-1]
	if n := len(f.captured) - 1; n < len(f.responses) {
		r = f.responses[n]
	}
	resp := &http.Response{
		StatusCode: r.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(r.body))),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func (f *fakeTransport) calls() []capture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capture(nil), f.captured...)
}

func replay(responses ...cannedResponse) (*fakeTransport, *http.Client) {
	ft := &fakeTransport{responses: responses}
	return ft, &http.Client{Transport: ft}
}
