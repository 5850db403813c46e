// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// BusRequest caps the wait for a single request/reply exchange on the bus.
// Every call carries a finite deadline; a caller that sees the deadline
// expire must treat the call as failed, never as still pending.
const BusRequest = 5 * time.Second

// BusConnect caps the wait when establishing the process-wide bus connection.
const BusConnect = 2 * time.Second

// ReadHeader limits how long the gateway waits for HTTP request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long a process waits for in-flight work during
// graceful shutdown.
const Shutdown = 5 * time.Second
