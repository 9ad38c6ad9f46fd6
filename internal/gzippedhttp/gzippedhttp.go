// Package gzippedhttp provides middlewares that gunzip request bodies and
// gzip text responses (HTML, JSON, CSS and JavaScript) for clients that accept it.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var compressibleContentTypes = []string{
	"text/html",
	"text/css",
	"text/plain",
	"application/json",
	"application/javascript",
	"text/javascript",
}

// CompressedReader wraps an io.ReadCloser and decompresses its input using gzip.
type CompressedReader struct {
	r  io.ReadCloser
	zr *gzip.Reader
}

func NewCompressedReader(requestBody io.ReadCloser) (*CompressedReader, error) {
	zippedRequestBody, err := gzip.NewReader(requestBody)
	if err != nil {
		return nil, err
	}

	return &CompressedReader{
		r:  requestBody,
		zr: zippedRequestBody,
	}, nil
}

func (c *CompressedReader) Read(p []byte) (n int, err error) {
	return c.zr.Read(p)
}

// Close closes both the gzip reader and the underlying io.ReadCloser.
func (c *CompressedReader) Close() error {
	if err := c.r.Close(); err != nil {
		return err
	}
	return c.zr.Close()
}

// CompressedHTTPResponseWriter decides on the first WriteHeader whether the
// response gets compressed: only successful responses with a text content type do.
type CompressedHTTPResponseWriter struct {
	w           http.ResponseWriter
	zw          *gzip.Writer
	wroteHeader bool
}

func NewCompressedHTTPResponseWriter(w http.ResponseWriter) *CompressedHTTPResponseWriter {
	return &CompressedHTTPResponseWriter{
		w: w,
	}
}

// Close flushes the gzip stream, if one was started, and returns its writer to the pool.
func (c *CompressedHTTPResponseWriter) Close() error {
	if c.zw == nil {
		return nil
	}
	err := c.zw.Close()
	gzipWriterPool.Put(c.zw)
	c.zw = nil

	return err
}

func (c *CompressedHTTPResponseWriter) WriteHeader(statusCode int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true

	header := c.w.Header()
	header.Add("Vary", "Accept-Encoding")
	alreadyEncoded := header.Get("Content-Encoding") != ""
	if !alreadyEncoded && statusCode < 300 && statusCode != http.StatusNoContent && isCompressible(header.Get("Content-Type")) {
		header.Set("Content-Encoding", "gzip")
		header.Del("Content-Length")
		c.zw = gzipWriterPool.Get().(*gzip.Writer)
		c.zw.Reset(c.w)
	}
	c.w.WriteHeader(statusCode)
}

func (c *CompressedHTTPResponseWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		if c.w.Header().Get("Content-Type") == "" {
			c.w.Header().Set("Content-Type", http.DetectContentType(p))
		}
		c.WriteHeader(http.StatusOK)
	}
	if c.zw == nil {
		return c.w.Write(p)
	}

	return c.zw.Write(p)
}

func (c *CompressedHTTPResponseWriter) Header() http.Header {
	return c.w.Header()
}

func isCompressible(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))
	for _, candidate := range compressibleContentTypes {
		if mediaType == candidate {
			return true
		}
	}

	return false
}

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

// GzipResponse is the middleware compressing responses for clients whose
// Accept-Encoding contains gzip.
func GzipResponse(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		finalResponse := response

		acceptEncoding := request.Header.Get("Accept-Encoding")
		clientAcceptsGzip := strings.Contains(acceptEncoding, "gzip")
		if clientAcceptsGzip {
			responseWithCompression := NewCompressedHTTPResponseWriter(response)
			finalResponse = responseWithCompression
			defer responseWithCompression.Close()
		}

		h.ServeHTTP(finalResponse, request)
	}

	return http.HandlerFunc(middleware)
}

// UngzipRequest replaces a gzip-encoded request body with a decompressing
// reader. A body that is not valid gzip is answered with 400.
func UngzipRequest(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		contentEncoding := request.Header.Get("Content-Encoding")
		clientSendsGzippedData := strings.Contains(contentEncoding, "gzip")
		if clientSendsGzippedData {
			requestBodyWithCompression, err := NewCompressedReader(request.Body)
			if err != nil {
				response.WriteHeader(http.StatusBadRequest)
				return
			}
			request.Body = requestBodyWithCompression
			request.Header.Del("Content-Encoding")
			defer requestBodyWithCompression.Close()
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
