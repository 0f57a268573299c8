package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jorei-crawler/internal/apiclient"
)

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	start := time.Unix(0, 0)
	var (
		result   apiclient.Response
		status   int
		fetchErr error
	)

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, start, &result, &status, &fetchErr)
	if hooks.onRequest == nil || hooks.onResponse == nil || hooks.onError == nil {
		t.Fatal("expected hooks to be registered")
	}

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	assert.Equal(t, "application/json", collyReq.Headers.Get("Accept"))

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"response":{}}`),
		Request: &colly.Request{
			URL: mustParseURL(t, "https://example.com/select"),
		},
	})
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, `{"response":{}}`, string(result.Body))
	assert.Equal(t, "https://example.com/select", result.URL)

	hooks.onError(&colly.Response{StatusCode: http.StatusBadGateway}, errors.New("boom"))
	assert.Equal(t, http.StatusBadGateway, status)
	require.EqualError(t, fetchErr, "boom")
}

func TestFetchReturnsBody(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "jorei-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "jorei-test", Timeout: time.Second})
	resp, err := f.Fetch(context.Background(), srv.URL+"/select?q=x")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))

	// The same URL must be fetchable again within one run.
	_, err = f.Fetch(context.Background(), srv.URL+"/select?q=x")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchNon2xxFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(Config{Timeout: time.Second}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestFetchInsecureTransportAcceptsBadCertificate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := New(Config{Timeout: time.Second}).Fetch(context.Background(), srv.URL)
	require.Error(t, err, "verifying fetcher must reject the self-signed certificate")

	resp, err := New(Config{Timeout: time.Second, InsecureSkipVerify: true}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(resp.Body))
}

func TestFetchWaitsOnLimiter(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	limiter := &stubWaiter{}
	f := New(Config{Timeout: time.Second, Limiter: limiter})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL}, limiter.urls)

	limiter.err = errors.New("limited")
	_, err = f.Fetch(context.Background(), srv.URL)
	require.EqualError(t, err, "limited")
}

func TestFetchCanceledContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(Config{Timeout: 5 * time.Second}).Fetch(ctx, srv.URL)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse url %q: %v", raw, err)
	}
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}

type stubWaiter struct {
	urls []string
	err  error
}

func (s *stubWaiter) Wait(_ context.Context, url string) error {
	if s.err != nil {
		return s.err
	}
	s.urls = append(s.urls, url)
	return nil
}
