// Package session owns the session expiration state machine.
//
// A session is admitted with a security level and data classification,
// receives an expiration bound from the pure policy tables in this package,
// and then moves through:
//
//	Active -> (extend, up to the level's ceiling) -> Active
//	Active -> expired -> optional grace period -> secure wipe -> removed
//
// The Manager is the sole owner of session metadata. All mutations go
// through its operations, which serialize per session ID, so concurrent
// extensions of the same session cannot overshoot the extension ceiling.
// Expiry operations are idempotent no-ops on unknown sessions; only owner
// mismatches surface as errors, so a tampering attempt can never be silently
// ignored.
package session
