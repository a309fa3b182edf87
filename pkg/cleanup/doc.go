// Package cleanup executes retention cleanup runs.
//
// A run discovers expired records through the retention catalog, partitions
// them into batches, and purges each record according to its policy: archive
// before delete, secure overwrite, or plain removal. Batches run
// sequentially or with bounded parallelism; a failure in one batch never
// stops the others. Only one run can be in flight at a time. Every run is
// persisted as a task whose final state (completed, aborted, timed out)
// and per-record outcome counts can be verified afterwards.
//
// The Scheduler drives recurring runs and the expired-session sweep from a
// cron expression.
package cleanup
