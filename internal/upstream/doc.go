// Package upstream is the HTTP client for the external delivery
// backend: best-effort package status lookups and best-effort position
// persistence. Both calls are bounded by short timeouts; the relay
// treats every failure here as survivable.
package upstream
