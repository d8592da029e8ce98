package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/colorful-bubbles/idb-keyval/lib/kv"
	"github.com/colorful-bubbles/idb-keyval/lib/record"
	"github.com/colorful-bubbles/idb-keyval/rpc/client"
	"github.com/colorful-bubbles/idb-keyval/rpc/common"
)

// newTestServer starts a mem-backed server on an httptest listener and
// returns a client pointed at it.
func newTestServer(t *testing.T) kv.IKeyVal {
	t.Helper()

	s := NewRPCServer(common.ServerConfig{
		Engine:              common.EngineMem,
		SweepIntervalSecond: 3600,
		LogLevel:            "error",
	})
	if err := s.init(); err != nil {
		t.Fatalf("server init failed: %v", err)
	}

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = s.registry.CloseAll()
	})

	return client.NewKeyValClient(&common.ClientConfig{
		Endpoint:      ts.URL,
		TimeoutSecond: 5,
		RetryCount:    1,
	})
}

func TestRoundTrip(t *testing.T) {
	c := newTestServer(t)

	if err := c.Set("teststore", "k", []byte("hello"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, loaded, err := c.Get("teststore", "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !loaded || !bytes.Equal(value, []byte("hello")) {
		t.Errorf("Expected hello, got %q (loaded=%t)", value, loaded)
	}

	loaded, err = c.Has("teststore", "k")
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if !loaded {
		t.Error("Expected Has to report the key present")
	}
}

func TestMissingKey(t *testing.T) {
	c := newTestServer(t)

	_, loaded, err := c.Get("teststore", "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded {
		t.Error("Expected a missing key to read as absent")
	}

	loaded, err = c.Has("teststore", "missing")
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if loaded {
		t.Error("Expected Has to report the key absent")
	}
}

func TestDelete(t *testing.T) {
	c := newTestServer(t)

	if err := c.Set("teststore", "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Del("teststore", "k"); err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	// deleting again stays a no-op success
	if err := c.Del("teststore", "k"); err != nil {
		t.Fatalf("Second Del failed: %v", err)
	}

	_, loaded, err := c.Get("teststore", "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded {
		t.Error("Expected the key to be gone after Del")
	}
}

func TestKeysAndClear(t *testing.T) {
	c := newTestServer(t)

	for _, key := range []string{"a", "b", "c"} {
		if err := c.Set("teststore", key, []byte("v"), 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	keys, err := c.Keys("teststore")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 3 {
		t.Errorf("Expected 3 keys, got %d (%v)", len(keys), keys)
	}

	if err := c.Clear("teststore"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	keys, err = c.Keys("teststore")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Expected no keys after Clear, got %v", keys)
	}
}

// A TTL-bearing write over HTTP files a record in the Expire Index, which
// is itself reachable through the same API.
func TestTTLWritesRecord(t *testing.T) {
	c := newTestServer(t)

	if err := c.Set("teststore", "k", []byte("v"), 60); err != nil {
		t.Fatalf("Set with ttl failed: %v", err)
	}

	loaded, err := c.Has(kv.ExpireIndex, record.CompositeKey("teststore", "k"))
	if err != nil {
		t.Fatalf("Has on the expire index failed: %v", err)
	}
	if !loaded {
		t.Error("Expected a TTL-bearing set to file an expire record")
	}

	// rewriting without a TTL drops the record again
	if err := c.Set("teststore", "k", []byte("v2"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	loaded, err = c.Has(kv.ExpireIndex, record.CompositeKey("teststore", "k"))
	if err != nil {
		t.Fatalf("Has on the expire index failed: %v", err)
	}
	if loaded {
		t.Error("Expected the TTL-less rewrite to drop the expire record")
	}
}

func TestInvalidTTL(t *testing.T) {
	s := NewRPCServer(common.ServerConfig{Engine: common.EngineMem, LogLevel: "error"})
	if err := s.init(); err != nil {
		t.Fatalf("server init failed: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = s.registry.CloseAll()
	})

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/v1/kv/teststore/k?ttl=soon", bytes.NewReader([]byte("v")))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for a non-numeric ttl, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := NewRPCServer(common.ServerConfig{Engine: common.EngineMem, LogLevel: "error"})
	if err := s.init(); err != nil {
		t.Fatalf("server init failed: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = s.registry.CloseAll()
	})

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from /metrics, got %d", resp.StatusCode)
	}
}
