// Package main hosts the audioserver CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the HTTP server in the foreground, ingests
// and lists audio files, creates and exports clip sets, and scaffolds
// configuration. Catalog commands open the SQLite store directly, so they work
// whether or not a server is running; status additionally asks a running
// server for its view over HTTP.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
