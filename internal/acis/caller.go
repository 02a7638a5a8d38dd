package acis

import (
	"context"
	"io"
)

// Caller executes a JSON web services call and returns the decoded result
// object.
type Caller interface {
	Submit(ctx context.Context, call string, params Params) (map[string]any, error)
}

// StreamCaller executes a call with non-JSON output and returns the open
// response body. The caller of SubmitStream closes it.
type StreamCaller interface {
	SubmitStream(ctx context.Context, call string, params Params) (io.ReadCloser, error)
}
