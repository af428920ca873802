// Package http provides HTTP handlers and middleware for the prayer-debt API.
//
// The router exposes the following endpoints:
//   - POST /prayer-debt/calculate: computes the caller's debt from the
//     `CalculationRequest` body and stores it. Response: {"snapshot": {...}}.
//   - GET /prayer-debt/snapshot: the stored snapshot, 404 before the first
//     calculation.
//   - PATCH /prayer-debt/progress: body {"entries":[{"type","amount"}]}.
//     Response: {"repayment_progress": {...}}.
//   - GET /prayer-debt/progress-history?start_date&end_date: response
//     {"history":[{"date","completed","total"}]}.
//   - POST /prayer-debt/calculations: queues a calculation, 202 with
//     {"job_id","status"}.
//   - GET /prayer-debt/calculations/{id}: the `jobDTO` defined in
//     prayer_debt_handler.go.
//   - POST /webhooks/prayer-debt: calculator callback {"job_id","status",
//     "result","error"} signed with the X-Signature-256 header. 204.
//   - GET /metrics, GET /healthz.
//
// Every /prayer-debt route requires the caller's id in the X-User-Id header
// (or the user_id query parameter). Identity is asserted by the gateway in
// front of this service.
package http
