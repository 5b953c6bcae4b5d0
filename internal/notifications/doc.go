// Package notifications delivers batch and review events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Per-category toggles let users silence batch chatter while keeping
// error alerts.
//
// Extend this package if you need alternative transports; the
// orchestrator depends only on the Service interface.
package notifications
