// Package notifier delivers hwbot's operator messages.
//
// Delivery is best effort: a failed send is logged, recorded in the in-memory
// history and the optional storage journal, and returned as *SendError. It is
// never retried here; the poll loop decides what a failure means.
//
// # Transport
//
// The notifier delegates to a transport.Sender (the Telegram adapter in
// production) and owns the destination chat, so callers only pass text.
//
// # Throttling
//
// A token bucket caps outgoing messages so a burst of failure reports cannot
// trip Telegram's flood limits.
package notifier
