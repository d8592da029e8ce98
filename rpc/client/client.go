package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/colorful-bubbles/idb-keyval/lib/kv"
	"github.com/colorful-bubbles/idb-keyval/lib/logger"
	"github.com/colorful-bubbles/idb-keyval/rpc/common"
)

var Logger = logger.GetLogger("rpc")

// NewKeyValClient creates a client for the HTTP key-value API that
// implements the same kv.IKeyVal interface as a local instance, so call
// sites can switch between embedded and remote databases without code
// changes.
//
// Usage:
//
//	c := client.NewKeyValClient(&common.ClientConfig{
//		Endpoint:      "http://localhost:8080",
//		TimeoutSecond: 5,
//		RetryCount:    3,
//	})
func NewKeyValClient(config *common.ClientConfig) kv.IKeyVal {
	timeout := time.Duration(config.TimeoutSecond) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	Logger.Debugf(config.String())

	return &keyValClient{
		config: *config,
		http:   &http.Client{Timeout: timeout},
	}
}

type keyValClient struct {
	config common.ClientConfig
	http   *http.Client
}

// keyURL builds the URL for a store/key pair, escaping both path segments
func (c *keyValClient) keyURL(store, key string) string {
	return fmt.Sprintf("%s/v1/kv/%s/%s", c.config.Endpoint, url.PathEscape(store), url.PathEscape(key))
}

func (c *keyValClient) storeURL(store string) string {
	return fmt.Sprintf("%s/v1/kv/%s", c.config.Endpoint, url.PathEscape(store))
}

// do sends a request, retrying transport errors and 5xx responses. Every
// operation of the API is idempotent, so blind retries are safe. The body
// of the final response is returned along with its status code.
func (c *keyValClient) do(method, target string, body []byte) (int, []byte, error) {
	attempts := c.config.RetryCount + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
			Logger.Debugf("retrying %s %s (attempt %d/%d)", method, target, attempt+1, attempts)
		}

		req, err := http.NewRequest(method, target, bytes.NewReader(body))
		if err != nil {
			return 0, nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server returned %d: %s", resp.StatusCode, payload)
			continue
		}

		return resp.StatusCode, payload, nil
	}

	return 0, nil, kv.NewError(kv.RetCInternalError, fmt.Sprintf("%s %s failed after %d attempts: %v", method, target, attempts, lastErr))
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lib/kv/interface.go)
// --------------------------------------------------------------------------

func (c *keyValClient) Get(store, key string) ([]byte, bool, error) {
	status, payload, err := c.do(http.MethodGet, c.keyURL(store, key), nil)
	if err != nil {
		return nil, false, err
	}
	switch status {
	case http.StatusOK:
		return payload, true, nil
	case http.StatusNotFound:
		return nil, false, nil
	default:
		return nil, false, kv.NewError(kv.RetCInternalError, fmt.Sprintf("get %s/%s: unexpected status %d", store, key, status))
	}
}

func (c *keyValClient) Set(store, key string, value []byte, ttlSeconds uint64) error {
	target := c.keyURL(store, key)
	if ttlSeconds > 0 {
		target += "?ttl=" + strconv.FormatUint(ttlSeconds, 10)
	}

	status, payload, err := c.do(http.MethodPut, target, value)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return kv.NewError(kv.RetCInternalError, fmt.Sprintf("set %s/%s: status %d: %s", store, key, status, payload))
	}
	return nil
}

func (c *keyValClient) Del(store, key string) error {
	status, payload, err := c.do(http.MethodDelete, c.keyURL(store, key), nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return kv.NewError(kv.RetCInternalError, fmt.Sprintf("del %s/%s: status %d: %s", store, key, status, payload))
	}
	return nil
}

func (c *keyValClient) Clear(store string) error {
	status, payload, err := c.do(http.MethodDelete, c.storeURL(store), nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return kv.NewError(kv.RetCInternalError, fmt.Sprintf("clear %s: status %d: %s", store, status, payload))
	}
	return nil
}

func (c *keyValClient) Keys(store string) ([]string, error) {
	status, payload, err := c.do(http.MethodGet, c.storeURL(store), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, kv.NewError(kv.RetCInternalError, fmt.Sprintf("keys %s: status %d: %s", store, status, payload))
	}

	var keys []string
	if err := json.Unmarshal(payload, &keys); err != nil {
		return nil, kv.NewError(kv.RetCInternalError, "keys "+store+": malformed response: "+err.Error())
	}
	return keys, nil
}

func (c *keyValClient) Has(store, key string) (bool, error) {
	status, _, err := c.do(http.MethodHead, c.keyURL(store, key), nil)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, kv.NewError(kv.RetCInternalError, fmt.Sprintf("has %s/%s: unexpected status %d", store, key, status))
	}
}

// Close releases idle connections. The remote database stays open; its
// lifecycle belongs to the server.
func (c *keyValClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
