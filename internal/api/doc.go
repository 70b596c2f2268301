// Package api is the typed boundary to the sentinel backend.
//
// Every endpoint gets an explicit response struct with json tags, validated
// after decode so malformed server data is rejected at the boundary instead
// of leaking into the reconciliation store. Push channel messages decode into
// tagged variants via DecodePushEvent; only the alert variant is interpreted.
//
// Error discipline: 401 maps to ErrUnauthorized (fatal to the view), 404 to
// ErrNotFound; other non-2xx statuses surface as *StatusError. Transport
// failures wrap the method and path for log context.
package api
