// Package bridge sends a typed value as JSON over HTTP and decodes the
// typed response.
//
//	type Lookup struct{ ID int `json:"id"` }
//	type Result struct {
//		ID     int    `json:"id"`
//		Status string `json:"status"`
//	}
//
//	res, err := bridge.Send[Lookup, Result](ctx, client, "/api/echo", Lookup{ID: 1})
//
// Every call is a single POST carrying Accept and Content-Type
// application/json. Nothing is cached or shared between calls: each call
// owns its request and response values.
//
// When compiled for GOOS=js GOARCH=wasm, net/http performs the request with
// the browser Fetch API and the calling goroutine yields to the event loop
// while it waits, so other goroutines keep running on the single thread.
//
// Failures are returned, never panicked: *EncodeError, *NetworkError,
// *StatusError and *DecodeError. Use errors.As to tell them apart.
package bridge
