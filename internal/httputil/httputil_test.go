// SPDX-License-Identifier: MIT
package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func TestCache_GetSet(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}

	want := map[string]int64{"Nepal": 28174724}
	if err = c.Set("pop", want); err != nil {
		t.Fatalf("Cache.Set() error = %v", err)
	}

	var got map[string]int64
	ok, err := c.Get("pop", &got)
	if err != nil || !ok {
		t.Fatalf("Cache.Get() = (%v, %v), want (true, nil)", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Cache.Get() = %v, want %v", got, want)
	}

	if ok, err = c.Get("missing", &got); ok || err != nil {
		t.Errorf("Cache.Get() = (%v, %v), want (false, nil)", ok, err)
	}

	if ok, _ = c.Namespace("other:").Get("pop", &got); ok {
		t.Errorf("Cache.Namespace().Get() found an entry of another namespace")
	}
}

func TestCache_Get_expired(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	if err = c.Set("key", "value"); err != nil {
		t.Fatalf("Cache.Set() error = %v", err)
	}

	old := time.Now().Add(-time.Hour)
	if err = os.Chtimes(c.path("key"), old, old); err != nil {
		t.Fatalf("os.Chtimes() error = %v", err)
	}

	var got string
	if ok, err := c.Get("key", &got); ok || !errors.Is(err, ErrExpired) {
		t.Errorf("Cache.Get() = (%v, %v), want (false, %v)", ok, err, ErrExpired)
	}
}

func TestRetry(t *testing.T) {
	errTransient := &RetryableError{Err: errors.New("transient")}
	errFatal := errors.New("fatal")

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   error
	}{
		{"first attempt", []error{nil}, 1, nil},
		{"recovers", []error{errTransient, nil}, 2, nil},
		{"fatal stops", []error{errFatal, nil}, 1, errFatal},
		{"attempts run out", []error{errTransient, errTransient, errTransient}, 3, errTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), 3, time.Millisecond, func() error {
				calls++
				return tt.errs[calls-1]
			})

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Retry() error = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("Retry() calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestClient_Cached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"name":"World"}`))
	}))
	defer srv.Close()

	cache, err := NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	client := NewClient(cache, WithHTTPClient(srv.Client()), WithRetry(2, time.Millisecond))

	type doc struct {
		Name string `json:"name"`
	}

	for range 2 {
		var got doc
		err = client.Cached(context.Background(), "doc", false, &got, func() error {
			return client.GetJSON(context.Background(), srv.URL, &got)
		})
		if err != nil {
			t.Fatalf("Client.Cached() error = %v", err)
		}
		if got.Name != "World" {
			t.Errorf("Client.Cached() = %+v, want World", got)
		}
	}

	// One failed attempt, one success, one cache hit.
	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

func TestClient_GetJSON_status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(nil, WithHTTPClient(srv.Client()))

	var v any
	err := client.GetJSON(context.Background(), srv.URL, &v)
	if !errors.Is(err, ErrStatus) || errors.As(err, new(*RetryableError)) {
		t.Errorf("Client.GetJSON() error = %v, want a non retryable %v", err, ErrStatus)
	}
}
