// Package audit records the append-only audit trail for governance actions.
//
// Every lifecycle transition (creation, extension, grace start, secure wipe)
// and every cleanup run produces an entry. Entries carry short descriptions
// and hashes only, never governed content: a secure wipe records the hash of
// its overwrite pattern so the wipe is independently verifiable without
// recovering anything sensitive.
package audit
