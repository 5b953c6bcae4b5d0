// Package queue tracks per-file upload state for the current session.
//
// Items live in one of two disjoint collections: the main queue, ordered
// for scheduling and display, and the unresolved bucket holding files that
// need a manual library selection. Items only move between the two through
// the defined transition methods, which keeps the needs-manual flag and the
// bucket membership consistent.
//
// The queue is deliberately in-memory: upload state is rebuilt per session,
// only the learned mappings survive restarts.
package queue
