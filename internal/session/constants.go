package session

import "time"

const (
	StateListening  = "listening"
	StateStopped    = "stopped"
	StateTerminated = "terminated"

	DefaultHistorySize = 200
	DefaultEventBuffer = 100

	idlePollInterval = 100 * time.Millisecond
)
