package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ASHISH26940/kvstore/internal/store"
)

// brokenStore fails every operation the way a backend with a dead disk would.
type brokenStore struct{}

func (brokenStore) Get(string) (any, error) {
	return nil, fmt.Errorf("%w: disk gone", store.ErrStorage)
}

func (brokenStore) Put(string, any) error {
	return fmt.Errorf("%w: disk gone", store.ErrStorage)
}

func (brokenStore) Delete(string) (bool, error) {
	return false, fmt.Errorf("%w: disk gone", store.ErrStorage)
}

func (brokenStore) Contains(string) (bool, error) {
	return false, fmt.Errorf("%w: disk gone", store.ErrStorage)
}

func (brokenStore) Clear() error {
	return fmt.Errorf("%w: disk gone", store.ErrStorage)
}

func (brokenStore) Keys() ([]string, error) {
	return nil, fmt.Errorf("%w: disk gone", store.ErrStorage)
}

func (brokenStore) Items() ([]store.Item, error) {
	return nil, fmt.Errorf("%w: disk gone", store.ErrStorage)
}

func (brokenStore) Size() (int, error) {
	return 0, errors.New("disk gone")
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func TestKVHandlers(t *testing.T) {
	st := store.NewMemoryStore()
	srv := New(st, nil)

	// --- Test Case 1: Set a new key ---
	rr := do(t, srv, http.MethodPost, "/kv/foo", `{"value":"bar"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	val, err := st.Get("foo")
	require.NoError(t, err)
	assert.Equal(t, "bar", val)

	// --- Test Case 2: Get the key ---
	rr = do(t, srv, http.MethodGet, "/kv/foo", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, ValueResponse{Key: "foo", Value: "bar"}, decode[ValueResponse](t, rr))

	// --- Test Case 3: Get a non-existent key ---
	rr = do(t, srv, http.MethodGet, "/kv/baz", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "KeyNotFound", decode[ErrorResponse](t, rr).Kind)

	// --- Test Case 4: Overwrite with a structured value via PUT ---
	rr = do(t, srv, http.MethodPut, "/kv/foo", `{"value":{"n":1,"tags":["a"]}}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = do(t, srv, http.MethodGet, "/kv/foo", "")
	assert.JSONEq(t, `{"key":"foo","value":{"n":1,"tags":["a"]}}`, rr.Body.String())

	// --- Test Case 5: Delete the key, then delete it again ---
	rr = do(t, srv, http.MethodDelete, "/kv/foo", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[DeleteResponse](t, rr).Deleted)

	rr = do(t, srv, http.MethodDelete, "/kv/foo", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[DeleteResponse](t, rr).Deleted)

	ok, err := st.Contains("foo")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVHandlers_BadRequests(t *testing.T) {
	srv := New(store.NewMemoryStore(), nil)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"empty key", http.MethodGet, "/kv/", "", http.StatusBadRequest},
		{"malformed body", http.MethodPut, "/kv/a", `{"value":`, http.StatusBadRequest},
		{"missing value", http.MethodPut, "/kv/a", `{"other":1}`, http.StatusBadRequest},
		{"trailing garbage", http.MethodPut, "/kv/a", `{"value":1}garbage`, http.StatusBadRequest},
		{"second document", http.MethodPost, "/kv/a", `{"value":1}{"value":2}`, http.StatusBadRequest},
		{"wrong method on key", http.MethodPatch, "/kv/a", "", http.StatusMethodNotAllowed},
		{"wrong method on keys", http.MethodPost, "/keys", "", http.StatusMethodNotAllowed},
		{"wrong method on size", http.MethodDelete, "/size", "", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, srv, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rr.Code)
			assert.NotEmpty(t, decode[ErrorResponse](t, rr).Error)
		})
	}

	ok, err := srv.store.Contains("a")
	require.NoError(t, err)
	assert.False(t, ok, "rejected bodies must not write")

	rr := do(t, srv, http.MethodPut, "/kv/a", "{\"value\":1}\n")
	assert.Equal(t, http.StatusCreated, rr.Code, "trailing whitespace is fine")
}

func TestBodyLimit(t *testing.T) {
	srv := New(store.NewMemoryStore(), nil, WithMaxBodyBytes(16))

	rr := do(t, srv, http.MethodPut, "/kv/a", `{"value":"small"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code, "17 bytes is over the limit")

	rr = do(t, srv, http.MethodPut, "/kv/a", `{"value":"tiny"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
}

func TestCollectionHandlers(t *testing.T) {
	srv := New(store.NewMemoryStore(), nil)

	for _, kv := range [][2]string{{"b", `"2"`}, {"a", `"1"`}, {"c", `3`}} {
		rr := do(t, srv, http.MethodPut, "/kv/"+kv[0], `{"value":`+kv[1]+`}`)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := do(t, srv, http.MethodGet, "/keys", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"keys":["b","a","c"]}`, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/kv", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"key":"b","value":"2"},{"key":"a","value":"1"},{"key":"c","value":3}]`, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/size", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"size":3}`, rr.Body.String())

	rr = do(t, srv, http.MethodDelete, "/kv", "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, http.MethodGet, "/size", "")
	assert.JSONEq(t, `{"size":0}`, rr.Body.String())
	rr = do(t, srv, http.MethodGet, "/kv", "")
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestStorageFailuresReturn500(t *testing.T) {
	srv := New(brokenStore{}, nil)

	requests := [][2]string{
		{http.MethodGet, "/kv/a"},
		{http.MethodDelete, "/kv/a"},
		{http.MethodGet, "/kv"},
		{http.MethodDelete, "/kv"},
		{http.MethodGet, "/keys"},
		{http.MethodGet, "/size"},
	}
	for _, r := range requests {
		rr := do(t, srv, r[0], r[1], "")
		assert.Equal(t, http.StatusInternalServerError, rr.Code, "%s %s", r[0], r[1])
	}

	rr := do(t, srv, http.MethodPut, "/kv/a", `{"value":1}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "StorageError", decode[ErrorResponse](t, rr).Kind)
}

func TestRequestIDAndHealth(t *testing.T) {
	srv := New(store.NewMemoryStore(), nil)

	rr := do(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok\n", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/size", nil)
	req.Header.Set(requestIDHeader, "caller-supplied")
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	assert.Equal(t, "caller-supplied", rr.Header().Get(requestIDHeader))

	rr = do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "kvstore_http_requests_total")
}

func TestRouteOf(t *testing.T) {
	assert.Equal(t, "/kv/{key}", routeOf("/kv/anything/at/all"))
	assert.Equal(t, "/kv", routeOf("/kv"))
	assert.Equal(t, "/keys", routeOf("/keys"))
	assert.Equal(t, "other", routeOf("/nope"))
}
