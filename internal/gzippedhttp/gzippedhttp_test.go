package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gunzip(t *testing.T, data []byte) []byte {
	t.Helper()

	zr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.NoError(t, zr.Close())

	return plain
}

func TestGzipResponseCompressesErrorBodies(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"user already exists","timestamp":"2026-01-02T15:04:05Z"}`))
	}))

	request := httptest.NewRequest(http.MethodPost, "/create-user", nil)
	request.Header.Set("Accept-Encoding", "gzip")
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusConflict, recorder.Code)
	require.Equal(t, "gzip", recorder.Header().Get("Content-Encoding"),
		"a compressed body must be declared, whatever the status code")

	var parsed struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(gunzip(t, recorder.Body.Bytes()), &parsed))
	assert.Equal(t, "user already exists", parsed.Error)
}

func TestGzipResponseCompressesRedirects(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
	}))

	request := httptest.NewRequest(http.MethodGet, "/link/nosuch", nil)
	request.Header.Set("Accept-Encoding", "gzip")
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusTemporaryRedirect, recorder.Code)
	assert.Equal(t, "/", recorder.Header().Get("Location"))
	if recorder.Body.Len() > 0 {
		require.Equal(t, "gzip", recorder.Header().Get("Content-Encoding"))
		assert.NotEmpty(t, gunzip(t, recorder.Body.Bytes()))
	}
}

func TestGzipResponseSkipsPreEncodedBodies(t *testing.T) {
	var preEncoded bytes.Buffer
	zw := gzip.NewWriter(&preEncoded)
	_, err := zw.Write([]byte("already compressed"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(preEncoded.Bytes())
	}))

	request := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	request.Header.Set("Accept-Encoding", "gzip")
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	assert.Equal(t, "gzip", recorder.Header().Get("Content-Encoding"))
	assert.Equal(t, []byte("already compressed"), gunzip(t, recorder.Body.Bytes()),
		"one gunzip must recover the handler's payload, never two")
}

func TestGzipResponseHonorsAcceptEncoding(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("plain"))
	}))

	request := httptest.NewRequest(http.MethodGet, "/ping", nil)
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	assert.Empty(t, recorder.Header().Get("Content-Encoding"))
	assert.Equal(t, "plain", recorder.Body.String())
}

func TestUngzipRequest(t *testing.T) {
	var seen []byte
	handler := UngzipRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seen = body
	}))

	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	_, err := zw.Write([]byte(`{"url":"https://example.com"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	request := httptest.NewRequest(http.MethodPost, "/shorten-link", &compressed)
	request.Header.Set("Content-Encoding", "gzip")
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	assert.Equal(t, `{"url":"https://example.com"}`, string(seen))
}

func TestUngzipRequestRejectsCorruptBody(t *testing.T) {
	handler := UngzipRequest(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run for an undecodable body")
	}))

	request := httptest.NewRequest(http.MethodPost, "/shorten-link", strings.NewReader("not gzip"))
	request.Header.Set("Content-Encoding", "gzip")
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
