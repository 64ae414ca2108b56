package queue

import "github.com/zoobzio/capitan"

// TaskCompleted is emitted when a task returns, successfully or not.
var TaskCompleted = capitan.NewSignal(
	"fresh.queue.task.completed",
	"Queued task completed",
)

// Field keys for queue signals.
var (
	// KeyDuration is how long the task ran, excluding time spent waiting for a slot.
	KeyDuration = capitan.NewDurationKey("duration")

	// KeyError is the error message of a failed task.
	KeyError = capitan.NewStringKey("error")

	// KeyIndex is the task's position in an AddAll or Stream batch.
	KeyIndex = capitan.NewIntKey("index")
)
