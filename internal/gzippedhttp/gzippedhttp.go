// Package gzippedhttp transparently decompresses gzip request bodies and
// compresses response bodies when the client advertises gzip support.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

type compressedReader struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

func newCompressedReader(body io.ReadCloser) (*compressedReader, error) {
	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, err
	}

	return &compressedReader{
		body: body,
		zr:   zr,
	}, nil
}

func (c *compressedReader) Read(p []byte) (int, error) {
	return c.zr.Read(p)
}

func (c *compressedReader) Close() error {
	if err := c.body.Close(); err != nil {
		return err
	}
	return c.zr.Close()
}

// compressedResponseWriter compresses the body regardless of status code, so
// error and redirect payloads stay decodable too. The decision is deferred to
// the first write: a handler that produced its own Content-Encoding (promhttp
// compresses by itself) is passed through untouched instead of being framed
// twice.
type compressedResponseWriter struct {
	w           http.ResponseWriter
	zw          *gzip.Writer
	wroteHeader bool
	compressing bool
}

func newCompressedResponseWriter(w http.ResponseWriter) *compressedResponseWriter {
	return &compressedResponseWriter{w: w}
}

// Header returns the underlying response headers.
func (c *compressedResponseWriter) Header() http.Header {
	return c.w.Header()
}

// WriteHeader starts compression unless the handler already encoded the body.
func (c *compressedResponseWriter) WriteHeader(statusCode int) {
	if c.wroteHeader {
		c.w.WriteHeader(statusCode)
		return
	}
	c.wroteHeader = true

	if c.w.Header().Get("Content-Encoding") == "" {
		c.compressing = true
		c.w.Header().Set("Content-Encoding", "gzip")
		c.w.Header().Del("Content-Length")
		c.zw = gzipWriterPool.Get().(*gzip.Writer)
		c.zw.Reset(c.w)
	}

	c.w.WriteHeader(statusCode)
}

// Write writes the response body, compressed when compression was started.
func (c *compressedResponseWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	if c.compressing {
		return c.zw.Write(p)
	}
	return c.w.Write(p)
}

func (c *compressedResponseWriter) close() error {
	if !c.compressing {
		return nil
	}
	if err := c.zw.Close(); err != nil {
		return err
	}
	gzipWriterPool.Put(c.zw)
	return nil
}

// GzipResponse compresses the response when the request's Accept-Encoding
// includes gzip.
func GzipResponse(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		finalResponse := response

		if strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			compressed := newCompressedResponseWriter(response)
			finalResponse = compressed
			defer compressed.close()
		}

		h.ServeHTTP(finalResponse, request)
	}

	return http.HandlerFunc(middleware)
}

// UngzipRequest replaces a gzip-encoded request body with a decompressing
// reader before the request reaches the handler chain.
func UngzipRequest(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			decompressed, err := newCompressedReader(request.Body)
			if err != nil {
				response.WriteHeader(http.StatusInternalServerError)
				return
			}
			request.Body = decompressed
			defer decompressed.Close()
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
