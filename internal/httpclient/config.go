package httpclient

import (
	"context"
	"io"
	"net/http"
	"time"
)

// HTTPClientConfig holds transport and request defaults
type HTTPClientConfig struct {
	Timeout               time.Duration
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	ExpectContinueTimeout time.Duration
	IdleConnTimeout       time.Duration
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	MaxConnsPerHost       int
	InsecureSkipVerify    bool
	FollowRedirects       bool
	MaxRedirects          int
	UserAgent             string
	CustomHeaders         map[string]string
	MaxContentSize        int
	EnableHTTP2           bool
	Proxy                 string
}

// DefaultHTTPClientConfig returns the defaults used by every client in the tool
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:               30 * time.Second,
		DialTimeout:           10 * time.Second,
		KeepAlive:             30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		FollowRedirects:       true,
		MaxRedirects:          10,
		UserAgent:             "designdiff/1.0",
		CustomHeaders:         map[string]string{},
		EnableHTTP2:           true,
	}
}

// HTTPRequest is a request issued through HTTPClient
type HTTPRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    io.Reader
	Context context.Context
}

// HTTPResponse is a fully buffered response
type HTTPResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// StreamResponse is an unbuffered response. The caller must close Body.
type StreamResponse struct {
	StatusCode    int
	Header        http.Header
	ContentLength int64
	Body          io.ReadCloser
}
