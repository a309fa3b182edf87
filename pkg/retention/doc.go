// Package retention tracks governed data artifacts against named retention
// policies.
//
// A policy maps a data type to a retention duration and cleanup behavior
// (secure delete, archive-before-delete, auto cleanup eligibility). Records
// register an artifact by content hash under a policy and carry a computed
// expiration. Policies ship as a YAML file that can be hot reloaded through
// an fsnotify watcher, so operators adjust retention windows without a
// restart.
package retention
