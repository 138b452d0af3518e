// Package notifications delivers routing notifications and run failure alerts
// via ntfy.
//
// The default implementation publishes to the ntfy topic configured in
// config.toml and degrades to a no-op when no topic is set. EMAIL
// notifications are forwarded by ntfy's e-mail header; SYSTEM notifications
// are published to the topic tagged with the candidate group. Delivery of a
// batch runs concurrently, bounded by notifications.concurrency.
//
// Workflow code depends only on the Dispatcher interface.
package notifications
