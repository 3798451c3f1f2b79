// Package schedule resolves the operator's chosen start time, a wall
// clock in some target country's timezone, into a wait duration, and
// provides the cancellable sleep the session blocks on.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownZone indicates a timezone identifier the platform database
// does not recognize.
var ErrUnknownZone = errors.New("unknown timezone")

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Spec describes one scheduled start: a date and wall-clock time read in
// TargetZone, resolved for an operator living in OperatorZone. An empty
// OperatorZone means the process-local zone.
type Spec struct {
	TargetZone   string
	TargetDate   string // YYYY-MM-DD
	TargetTime   string // HH:MM, 24h
	OperatorZone string
}

// Immediate reports whether no start was scheduled at all, which the
// session treats as "send now".
func (s Spec) Immediate() bool {
	return s.TargetDate == "" && s.TargetTime == ""
}

// Target resolves the spec into an absolute instant expressed in the
// operator's timezone.
func Target(spec Spec) (time.Time, error) {
	targetLoc, err := time.LoadLocation(spec.TargetZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownZone, spec.TargetZone)
	}

	opLoc := time.Local
	if spec.OperatorZone != "" {
		opLoc, err = time.LoadLocation(spec.OperatorZone)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownZone, spec.OperatorZone)
		}
	}

	naive := spec.TargetDate + " " + spec.TargetTime
	target, err := time.ParseInLocation(dateLayout+" "+timeLayout, naive, targetLoc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule %q: %w", naive, err)
	}
	return target.In(opLoc), nil
}

// Wait returns how long to block before the target instant. A target
// already in the past yields zero: immediate-send mode, never an error.
func Wait(spec Spec, now time.Time) (time.Duration, error) {
	if spec.Immediate() {
		return 0, nil
	}
	target, err := Target(spec)
	if err != nil {
		return 0, err
	}
	d := target.Sub(now)
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// Sleep blocks for d or until ctx is cancelled, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
