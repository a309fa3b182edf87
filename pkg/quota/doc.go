// Package quota arbitrates per-user daily admission quotas.
//
// Usage is bucketed by calendar day in a configurable reference timezone,
// expressed as a fixed UTC offset. Admission is a single atomic
// check-and-increment against the quota store, so concurrent requests can
// never push a user past the limit. Denials are recorded in the audit trail
// with the usage that triggered them.
package quota
