package shield

import (
	"context"
	"net/http"
)

// Request is a single provider call as handed to a Transport.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is what a Transport returns for a completed call. A non-2xx status
// is a Response with OK false, not an error.
type Response struct {
	OK         bool
	StatusCode int
	Body       []byte
}

// Transport performs provider calls. The executor depends on nothing else.
type Transport interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

// Fetch calls f.
func (f TransportFunc) Fetch(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// RequestBody is the JSON body sent for every query, real or chaff alike.
type RequestBody struct {
	Kind   Kind           `json:"kind"`
	Target string         `json:"target"`
	Meta   map[string]any `json:"meta"`
}

// GatedTransport wraps t so every call fails with ErrNetworkDisallowed while
// gate reports offline.
func GatedTransport(t Transport, gate ModeGate) Transport {
	return TransportFunc(func(ctx context.Context, req *Request) (*Response, error) {
		if !gate.NetworkAllowed() {
			return nil, ErrNetworkDisallowed
		}
		return t.Fetch(ctx, req)
	})
}
