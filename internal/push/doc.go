// Package push maintains the websocket channel that delivers alert events
// between polls. Events are applied to the store in arrival order; the store's
// idempotent merge by alert ID makes a reordering buffer unnecessary.
package push
