// Package healthcheck serves liveness and readiness probes over HTTP.
//
// /health/live always answers "ALIVE". /health/ready answers "READY" when
// every Check passes and 503 otherwise; the failing check is logged.
package healthcheck
