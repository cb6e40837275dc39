// Package constants holds the tunables shared by the registry, thread, and
// logging subsystems so none of them hard-codes the others' limits.
package constants

import "time"

// Registry sizing.
const (
	// MaxDependencies bounds how many dependency names a single subsystem
	// may list.
	MaxDependencies = 16

	// InitialRegistryCapacity is the slice capacity the registry allocates
	// on its first registration.
	InitialRegistryCapacity = 8
)

// Thread registry sizing.
const (
	// MaxServiceThreads bounds how many worker threads a single
	// subsystem's thread table may track at once.
	MaxServiceThreads = 32

	// MaxThreadDescriptionLen is the longest description string stored
	// per thread-table entry (not counting the terminator).
	MaxThreadDescriptionLen = 32

	// MaxSubsystemNameLen is the longest subsystem name a thread table
	// copies into itself (not counting the terminator).
	MaxSubsystemNameLen = 31
)

// Logging pipeline sizing.
const (
	// LogBufferSize is the number of lines the rolling in-memory buffer
	// retains.
	LogBufferSize = 1000

	// MaxLogLineLength is the capacity, in bytes, of each rolling-buffer
	// slot.
	MaxLogLineLength = 2048

	// DefaultLogEntrySize is the scratch-buffer size used to format a
	// single log record's arguments before truncation.
	DefaultLogEntrySize = 1024

	// LogQueueCapacity is the bounded depth of the log queue consumed by
	// the dedicated worker.
	LogQueueCapacity = 4096
)

// Lifecycle polling.
const (
	// StopAllPollInterval is the pause between leaf-scan passes in
	// StopAllInDependencyOrder, giving a winding-down subsystem time to
	// finish before the next round.
	StopAllPollInterval = 10 * time.Millisecond
)
