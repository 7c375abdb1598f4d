package timer

import (
	"context"
	"fmt"
	"time"
)

// Remaining computes how much preparation time an order has left at the given
// instant. It is a pure function of the acceptance timestamp and the allotted
// minutes: rerunning it for the same wall-clock time always yields the same
// value, and it never goes below zero.
func Remaining(acceptedAt time.Time, prepMinutes int, now time.Time) time.Duration {
	deadline := acceptedAt.Add(time.Duration(prepMinutes) * time.Minute)
	remaining := deadline.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Countdown ticks once per second with the current remaining time. The channel
// closes when the countdown reaches zero or the context is cancelled, so a torn
// down order card leaves no ticker behind. Reaching zero is advisory only; no
// status change is triggered here.
func Countdown(ctx context.Context, acceptedAt time.Time, prepMinutes int) <-chan time.Duration {
	ch := make(chan time.Duration, 1)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				remaining := Remaining(acceptedAt, prepMinutes, now)
				select {
				case ch <- remaining:
				case <-ctx.Done():
					return
				}
				if remaining == 0 {
					return
				}
			}
		}
	}()
	return ch
}

// Format renders a remaining duration the way the kitchen display shows it,
// minutes and zero-padded seconds.
func Format(remaining time.Duration) string {
	minutes := int(remaining / time.Minute)
	seconds := int(remaining%time.Minute) / int(time.Second)
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
