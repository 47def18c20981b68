// Package model defines the courier position sample and the wire-level
// event types shared between the WebSocket server, the HTTP ingest
// adapter, and the broadcast engine.
package model
