// Package timeouts defines shared timing constants used across the engine.
// Centralizing these values keeps trigger intervals declarative and prevents
// drift between components that must agree on them.
package timeouts

import "time"

// Generation caps a single call to the text-generation backend. Replies that
// miss this window degrade to the persona's fallback line.
const Generation = 30 * time.Second

// Idle is how long a room may go without any message before the delivery
// controller schedules one unprompted persona turn.
const Idle = 45 * time.Second

// ChoiceDebounce is the minimum real-time gap between automatically
// triggered structured-choice rounds in one room.
const ChoiceDebounce = 30 * time.Second

// EmptyRoomSweep is how long an empty, inactive room may linger before the
// background sweep deletes it. Immediate deletion on last-leave is the
// primary path; the sweep is a safety net.
const EmptyRoomSweep = 5 * time.Minute

// SweepTick is the interval between background sweep passes.
const SweepTick = 30 * time.Second

// PauseDefault is the pause granted when a request names no duration.
const PauseDefault = 10 * time.Second

// PauseMax caps a client-supplied pause duration.
const PauseMax = 2 * time.Minute

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
