// Package daemon runs the long-lived audioserver HTTP process.
//
// It wires configuration and the clip-set service into a single lifecycle
// with flock-based locking to prevent two servers sharing one data
// directory. The daemon owns the HTTP API server, reports dependency and
// directory health, and shuts the listener down when its context ends.
//
// Keep orchestration here: request handling maps onto clipset.Service calls
// and never reaches into storage directly.
package daemon
