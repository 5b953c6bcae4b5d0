// Package learned persists the state that must survive restarts: the
// learned filename-signature to library mappings built from manual
// corrections, the coarser pattern cache seeded by successful matches, and
// user-adjustable upload settings.
//
// The Store interface exists so tests can inject an in-memory fake; the
// production implementation is SQLite backed. Learned mappings are never
// evicted.
package learned
