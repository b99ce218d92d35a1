// Package client provides the HTTP transport the privacy shield executes
// plans through.
//
// A Client turns each shield.Request into one HTTP call and reports the
// status and raw body back. It never retries and never interprets the body;
// the executor parses JSON opportunistically.
//
// # Quick Start
//
//	c := client.New()
//	resp, err := c.Fetch(ctx, &shield.Request{
//	    Method: http.MethodPost,
//	    URL:    "https://provider.example/lookup",
//	    Body:   []byte(`{"kind":"tx-raw","target":"...","meta":{}}`),
//	})
//
// Use custom configuration:
//
//	c := client.New(
//	    client.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
//	    client.WithMaxBodyBytes(1 << 20),
//	)
//
// Provider URLs and request targets are never logged; debug logs carry the
// method, status and duration only.
package client
