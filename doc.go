// Package keyverify is a license-key verification service for community
// servers. Operators register products with a secret and a role; members
// verify a purchased license key and receive the product's role.
//
// The module is laid out as:
//
//	app/keyverify        wiring of stores, engine, dispatcher and background loops
//	cmd/keyverify        command-line entry point (serve, genkey, migrate)
//	core/flow            add, remove and verify interaction flows
//	core/interaction     deadline-bound sessions with atomic claim and expiry
//	core/product         product catalog over memory, SQLite or PostgreSQL
//	core/command         command dispatcher with sync and channel transports
//	core/healthcheck     liveness and readiness endpoints
//	pkg/ratelimiter      per-user cooldown windows
//	pkg/secrets          AES-GCM sealing of product secrets
//	pkg/periodic         ticker-driven background loops
package keyverify
