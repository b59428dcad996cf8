// Package storage persists hwbot's poll checkpoint and delivery journal.
//
// It currently supports:
//   - A checkpoint (poll cursor + last sent text) so a restart can resume
//   - Delivery journal appends (every notification attempt)
package storage
