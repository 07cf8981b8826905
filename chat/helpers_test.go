package chat_test

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petasbytes/simplechat/chat"
)

type reply struct {
	status int
	body   string
}

// fakeAPI answers chat and image requests from separate queues, repeating
// the last entry of each, and records request bodies in order.
type fakeAPI struct {
	mu       sync.Mutex
	chat     []reply
	image    []reply
	requests []string
	failWith error
}

func (f *fakeAPI) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, string(body))
	if f.failWith != nil {
		return nil, f.failWith
	}
	queue := &f.chat
	if strings.HasSuffix(req.URL.Path, "/images/generations") {
		queue = &f.image
	}
	if len(*queue) == 0 {
		return nil, errors.New("fakeAPI: no reply queued for " + req.URL.Path)
	}
	r := (*queue)[0]
	if len(*queue) > 1 {
		*queue = (*queue)[1:]
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

func (f *fakeAPI) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func textReply(content string) reply {
	return reply{200, `{"id":"c","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"` + content + `"},"finish_reason":"stop"}]}`}
}

func toolReply(id, name string) reply {
	return reply{200, `{"id":"c","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":null,"tool_calls":[{"id":"` + id + `","type":"function","function":{"name":"` + name + `","arguments":"{}"}}]},"finish_reason":"tool_calls"}]}`}
}

func newClient(t *testing.T, api *fakeAPI, opts ...chat.Option) *chat.Client {
	t.Helper()
	base := []chat.Option{
		chat.WithHTTPClient(&http.Client{Transport: api}),
		chat.WithRetry(0, 0),
	}
	c, err := chat.New("test-key", "You are Botto.", append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}
