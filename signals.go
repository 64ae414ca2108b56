package fresh

import "github.com/zoobzio/capitan"

// Refresh cycle signals.
var (
	// RefreshStarted is emitted when a refresh cycle begins fetching.
	RefreshStarted = capitan.NewSignal(
		"fresh.refresh.started",
		"Refresh fetch started",
	)

	// RefreshSucceeded is emitted when a fetched value has been installed.
	RefreshSucceeded = capitan.NewSignal(
		"fresh.refresh.succeeded",
		"Refreshed value installed",
	)

	// RefreshFailed is emitted when the freshness check or the fetch failed.
	RefreshFailed = capitan.NewSignal(
		"fresh.refresh.failed",
		"Refresh cycle failed",
	)

	// ValueHit is emitted when the installed value passed the freshness check.
	ValueHit = capitan.NewSignal(
		"fresh.value.hit",
		"Installed value still fresh",
	)
)

// Field keys for Value signals.
var (
	// KeyName is the name of the Value.
	KeyName = capitan.NewStringKey("name")

	// KeyError is the error message when a cycle fails.
	KeyError = capitan.NewStringKey("error")

	// KeyDuration is how long the fetch took.
	KeyDuration = capitan.NewDurationKey("duration")
)
