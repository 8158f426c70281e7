package cover

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newImageServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/missing.jpg":
			http.NotFound(w, r)
		case "/broken.jpg":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte("image:" + r.URL.Path))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchCachesByFilename(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := newImageServer(t, &hits)
	c := New(Options{Client: srv.Client()})

	first, err := c.Fetch(context.Background(), "abc.jpg", srv.URL+"/abc.jpg")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	second, err := c.Fetch(context.Background(), "abc.jpg", srv.URL+"/other.jpg")
	if err != nil {
		t.Fatalf("Fetch() second error = %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached bytes differ (-first +second):\n%s", diff)
	}
	if string(first) != "image:/abc.jpg" {
		t.Errorf("Fetch() = %q, want image:/abc.jpg", first)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}
	if got := c.Downloads(); got != 1 {
		t.Errorf("Downloads() = %d, want 1", got)
	}
	if got := c.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestFetchFailuresAreNotCached(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		path       string
		wantStatus int
	}{
		"not found":    {path: "/missing.jpg", wantStatus: http.StatusNotFound},
		"server error": {path: "/broken.jpg", wantStatus: http.StatusInternalServerError},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var hits atomic.Int64
			srv := newImageServer(t, &hits)
			c := New(Options{Client: srv.Client()})
			url := srv.URL + tc.path

			for i := 0; i < 2; i++ {
				data, err := c.Fetch(context.Background(), "x.jpg", url)
				if data != nil {
					t.Errorf("Fetch() data = %q, want nil", data)
				}
				var fe *FetchError
				if !errors.As(err, &fe) {
					t.Fatalf("Fetch() error = %v, want *FetchError", err)
				}
				want := &FetchError{StatusCode: tc.wantStatus, URL: url}
				if diff := cmp.Diff(want, fe); diff != "" {
					t.Errorf("FetchError mismatch (-want +got):\n%s", diff)
				}
			}
			if got := hits.Load(); got != 2 {
				t.Errorf("server hits = %d, want 2 (failures must not be cached)", got)
			}
			if got := c.Len(); got != 0 {
				t.Errorf("Len() = %d, want 0", got)
			}
		})
	}
}

func TestFetchMissingURL(t *testing.T) {
	t.Parallel()

	c := New(Options{})
	if _, err := c.Fetch(context.Background(), "x.jpg", ""); !errors.Is(err, ErrMissingURL) {
		t.Errorf("Fetch() error = %v, want ErrMissingURL", err)
	}
}

func TestFetchConcurrent(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := newImageServer(t, &hits)
	c := New(Options{Client: srv.Client()})

	const workers = 16
	var wg sync.WaitGroup
	results := make([][]byte, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Fetch(context.Background(), "shared.jpg", srv.URL+"/shared.jpg")
		}(i)
	}
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("worker %d error = %v", i, errs[i])
		}
		if string(results[i]) != "image:/shared.jpg" {
			t.Errorf("worker %d got %q", i, results[i])
		}
	}
	if got := hits.Load(); got < 1 || got > workers {
		t.Errorf("server hits = %d, want between 1 and %d", got, workers)
	}
	if got := c.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestFetchTruncatedBodyIsNotCached(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Length", "1024")
		_, _ = w.Write([]byte("partial image"))
	}))
	t.Cleanup(srv.Close)
	c := New(Options{Client: srv.Client(), PersistPath: filepath.Join(t.TempDir(), "covers.gob")})

	for i := 0; i < 2; i++ {
		data, err := c.Fetch(context.Background(), "cut.jpg", srv.URL+"/cut.jpg")
		if err == nil {
			t.Fatalf("Fetch() run %d = %q, want error for truncated body", i, data)
		}
		if data != nil {
			t.Errorf("Fetch() run %d data = %q, want nil", i, data)
		}
	}
	if got := c.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
	if _, ok := c.lookup("cut.jpg"); ok {
		t.Error("truncated cover reached the disk layer")
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

func TestFetchSharedDownloadSurvivesCallerCancel(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(started)
		}
		<-release
		_, _ = w.Write([]byte("image"))
	}))
	t.Cleanup(srv.Close)
	c := New(Options{Client: srv.Client()})
	url := srv.URL + "/shared.jpg"

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx, "shared.jpg", url)
		firstErr <- err
	}()
	<-started

	type result struct {
		data []byte
		err  error
	}
	second := make(chan result, 1)
	go func() {
		data, err := c.Fetch(context.Background(), "shared.jpg", url)
		second <- result{data, err}
	}()

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled Fetch() error = %v, want context.Canceled", err)
	}
	close(release)

	got := <-second
	if got.err != nil || string(got.data) != "image" {
		t.Errorf("waiting Fetch() = %q, %v; want image", got.data, got.err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestPersistAndReload(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := newImageServer(t, &hits)
	path := filepath.Join(t.TempDir(), "cache", "covers.gob")

	c := New(Options{Client: srv.Client(), PersistPath: path, TTL: time.Hour})
	if _, err := c.Fetch(context.Background(), "abc.jpg", srv.URL+"/abc.jpg"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if err := c.Persist(); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	srv.Close()
	reloaded := New(Options{Client: srv.Client(), PersistPath: path, TTL: time.Hour})
	data, err := reloaded.Fetch(context.Background(), "abc.jpg", srv.URL+"/abc.jpg")
	if err != nil {
		t.Fatalf("Fetch() from disk error = %v", err)
	}
	if string(data) != "image:/abc.jpg" {
		t.Errorf("Fetch() from disk = %q", data)
	}
	if got := reloaded.Downloads(); got != 0 {
		t.Errorf("Downloads() after reload = %d, want 0", got)
	}
}

func TestPersistWithoutDiskLayer(t *testing.T) {
	t.Parallel()

	if err := New(Options{}).Persist(); err != nil {
		t.Errorf("Persist() error = %v, want nil", err)
	}
}

type flakyTransport struct {
	failures int
	calls    int
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       http.NoBody,
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func TestRetryTransport(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		method    string
		failures  int
		wantCalls int
		wantErr   bool
	}{
		"get succeeds after retries": {method: http.MethodGet, failures: 2, wantCalls: 3},
		"get gives up":               {method: http.MethodGet, failures: 5, wantCalls: 3, wantErr: true},
		"post is not retried":        {method: http.MethodPost, failures: 1, wantCalls: 1, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			base := &flakyTransport{failures: tc.failures}
			rt := &retryTransport{Base: base, RetryMax: 2}

			req := httptest.NewRequest(tc.method, "http://example.test/a.jpg", nil)
			req.RequestURI = ""
			resp, err := rt.RoundTrip(req)
			if (err != nil) != tc.wantErr {
				t.Fatalf("RoundTrip() error = %v, wantErr %v", err, tc.wantErr)
			}
			if resp != nil {
				resp.Body.Close()
			}
			if base.calls != tc.wantCalls {
				t.Errorf("base calls = %d, want %d", base.calls, tc.wantCalls)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	t.Run("AllowsRequestsWithinLimit", func(t *testing.T) {
		t.Parallel()
		rl := NewRateLimiter(5, time.Second)

		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := rl.Wait(context.Background()); err != nil {
				t.Errorf("Wait() request %d error = %v", i+1, err)
			}
		}
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Errorf("5 requests under limit took %v, expected < 100ms", elapsed)
		}
	})

	t.Run("BlocksExcessRequests", func(t *testing.T) {
		t.Parallel()
		rl := NewRateLimiter(2, 300*time.Millisecond)

		start := time.Now()
		for i := 0; i < 3; i++ {
			if err := rl.Wait(context.Background()); err != nil {
				t.Errorf("Wait() request %d error = %v", i+1, err)
			}
		}
		if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
			t.Errorf("3rd request took %v, expected at least 300ms delay", elapsed)
		}
	})

	t.Run("HonorsCancellation", func(t *testing.T) {
		t.Parallel()
		rl := NewRateLimiter(1, time.Hour)
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() first request error = %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
		}
	})

	t.Run("DisabledLimiterIsNil", func(t *testing.T) {
		t.Parallel()
		rl := NewRateLimiter(0, time.Second)
		if rl != nil {
			t.Fatalf("NewRateLimiter(0, 1s) = %v, want nil", rl)
		}
		if err := rl.Wait(context.Background()); err != nil {
			t.Errorf("nil Wait() error = %v", err)
		}
	})
}
