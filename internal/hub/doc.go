// Package hub tracks live connections and their room memberships, and
// fans published payloads out to room members.
//
// Two kinds of rooms exist: the single office room that observes every
// courier, and one room per package for merchant viewers. Membership is
// ephemeral; it lives and dies with the owning session. The hub also
// keeps the courier registry, mapping a courier id to its current
// uplink session.
package hub
