// Package middleware implements the RequestPipeline: request id/IP/
// time attachment, CORS, structured request/response logging, CIDR
// admission, and constant-time token comparison.
package middleware

import "time"

const (
	ctxRequestID = "cmx_request_id"
	ctxStartedAt = "cmx_started_at"
	ctxClientIP  = "cmx_client_ip"
)

// RequestContext groups the per-request metadata the pipeline tracks.
// The pipeline stores these values under separate gin context keys
// (read back with RequestID, StartedAt and ClientIP), not as this struct.
type RequestContext struct {
	RequestID string
	StartedAt time.Time
	ClientIP  string
}
