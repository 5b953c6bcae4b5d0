// Package main hosts the Lectern CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into pipeline
// runs: queueing local videos, matching them against catalog libraries,
// driving uploads, recording embed codes into the tracking workbook, and
// configuration scaffolding. It centralizes configuration resolution,
// instance locking, and structured logging setup so subcommands can focus on
// user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
