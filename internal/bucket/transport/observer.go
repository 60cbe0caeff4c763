package transport

import "time"

// Observer receives telemetry for each primitive attempt and probe.
type Observer interface {
	RecordAttempt(primitive string, status int, err error, d time.Duration)
	RecordProbe(status int, filtered bool)
}

type nopObserver struct{}

func (nopObserver) RecordAttempt(string, int, error, time.Duration) {}

func (nopObserver) RecordProbe(int, bool) {}
