// Package storage provides persistence backends for the Callisto engine.
//
// The Backend interface aggregates stores for sessions, quota usage,
// retention policies and records, cleanup tasks, and the audit trail. Two
// implementations are provided:
//
//   - MemoryBackend: in-memory maps guarded by a mutex. Fast, no
//     persistence; the default for tests and single-shot runs.
//   - SQLiteBackend: durable single-instance storage using modernc.org/sqlite
//     with WAL mode, prepared statements, and periodic checkpoints.
//
// Both backends implement the conditional-update primitive
// IncrementIfBelow, which evaluates "used < limit" and increments as one
// atomic step. Callers must never implement quota admission as a separate
// read followed by a write.
package storage
