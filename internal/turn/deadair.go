package turn

import (
	"context"
	"sync"
	"time"
)

// deadAirGuard fills conversational silence: if the first generated token has
// not arrived within the delay, fire runs once. The guard stands down as soon
// as the generation context is cancelled, so an interrupted turn never speaks
// a filler over the caller. Disarm blocks until the guard goroutine has
// either fired or exited, so a caller that disarms before sending the first
// real fragment gets filler-before-fragment ordering for free.
type deadAirGuard struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func armDeadAir(ctx context.Context, delay time.Duration, fire func()) *deadAirGuard {
	g := &deadAirGuard{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(g.done)
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
			fire()
		case <-ctx.Done():
		case <-g.stop:
		}
	}()
	return g
}

// Disarm stops the guard and waits for it to settle. Safe to call more than
// once.
func (g *deadAirGuard) Disarm() {
	g.once.Do(func() { close(g.stop) })
	<-g.done
}
