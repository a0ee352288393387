// Package cli provides the interactive fieldsync command-line client: a REPL
// over the sync engine for inspecting queues, triggering syncs and queueing
// record mutations.
package cli
