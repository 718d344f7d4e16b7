// Package middleware provides HTTP observability middleware for dropkit.
//
// This package includes:
//   - Prometheus metrics middleware plus recording functions used by
//     the live and upload packages
//   - OpenTelemetry tracing middleware and span helpers for
//     live-session events
//
// # Prometheus Metrics
//
//	r := chi.NewRouter()
//	r.Use(middleware.Prometheus())
//	r.Handle("/metrics", promhttp.Handler())
//
// HTTP metrics are recorded by the middleware itself; session and upload
// metrics flow through the Record* functions:
//   - dropkit_http_requests_total, dropkit_http_request_duration_seconds
//   - dropkit_active_sessions, dropkit_session_events_total
//   - dropkit_uploads_staged_total, dropkit_uploads_rejected_total
//   - dropkit_batches_total, dropkit_batch_duration_seconds
//   - dropkit_cleanup_removed_total, dropkit_websocket_errors_total
//
// # OpenTelemetry Tracing
//
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
//
// The middleware injects the span context into the request context, so
// downstream calls made with r.Context() inherit the trace. WebSocket
// events are traced through StartEventSpan and EndEventSpan.
package middleware
