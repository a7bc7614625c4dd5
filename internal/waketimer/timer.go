package waketimer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// maxSleepCap bounds a single sleep so wall-clock jumps are noticed.
	maxSleepCap = 60 * time.Second
	opsBuffer   = 64
)

// ErrClosed is returned by operations on a stopped timer.
var ErrClosed = errors.New("wake timer is closed")

// Handle identifies one registration. Zero is never issued.
type Handle uint64

// FireFunc is invoked on its own goroutine when a registration is due.
type FireFunc func(alarmID int64, handle Handle)

type opKind int

const (
	opArm opKind = iota
	opCancel
	opPending
)

type op struct {
	kind  opKind
	entry entry
	reply chan int
}

// Timer is a single-goroutine scheduler of one-shot wake-ups.
type Timer struct {
	// ops carries Arm, Cancel and Pending requests in submission order.
	ops chan op
	// done is closed when the run loop exits.
	done chan struct{}
	// stop cancels the run loop.
	stop context.CancelFunc
	// next issues handles.
	next atomic.Uint64
	// onFire is called for every due registration.
	onFire FireFunc
	// wg tracks in-flight fire callbacks.
	wg sync.WaitGroup
}

// New starts a timer. The run loop exits when ctx is cancelled or Close is called.
func New(ctx context.Context, onFire FireFunc) *Timer {
	ctx, stop := context.WithCancel(ctx)

	t := &Timer{
		ops:    make(chan op, opsBuffer),
		done:   make(chan struct{}),
		stop:   stop,
		onFire: onFire,
	}

	go t.run(ctx)

	return t
}

// Arm registers a one-shot wake-up for the alarm at the absolute instant.
// Instants in the past fire immediately.
func (t *Timer) Arm(alarmID int64, at time.Time) (Handle, error) {
	h := Handle(t.next.Add(1))

	if err := t.submit(op{kind: opArm, entry: entry{handle: h, alarmID: alarmID, at: at}}); err != nil {
		return 0, err
	}

	return h, nil
}

// Cancel removes a registration. Unknown or already fired handles are ignored.
func (t *Timer) Cancel(h Handle) error {
	return t.submit(op{kind: opCancel, entry: entry{handle: h}})
}

// pending returns the number of armed registrations.
func (t *Timer) pending() int {
	reply := make(chan int, 1)

	if err := t.submit(op{kind: opPending, reply: reply}); err != nil {
		return 0
	}

	select {
	case n := <-reply:
		return n
	case <-t.done:
		return 0
	}
}

// Close stops the run loop and waits for in-flight callbacks.
func (t *Timer) Close() error {
	t.stop()
	<-t.done
	t.wg.Wait()

	return nil
}

func (t *Timer) submit(o op) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}

	select {
	case t.ops <- o:
		return nil
	case <-t.done:
		return ErrClosed
	}
}

// run owns the heap. Nothing else touches it.
func (t *Timer) run(ctx context.Context) {
	defer close(t.done)

	var (
		h     entryHeap
		timer *time.Timer
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}

		if h.Len() == 0 {
			// Nothing armed, block on ops only.
			return nil
		}

		dur := min(time.Until(h[0].at), maxSleepCap)
		timer = time.NewTimer(max(dur, 0))

		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-ctx.Done():
			return

		case o := <-t.ops:
			switch o.kind {
			case opArm:
				heapPush(&h, o.entry)
			case opCancel:
				heapRemove(&h, o.entry.handle)
			case opPending:
				o.reply <- h.Len()
			}

			timerCh = resetTimer()

		case <-timerCh:
			now := time.Now()

			for h.Len() > 0 && !h[0].at.After(now) {
				e := heapPop(&h)

				t.wg.Add(1)

				go func() {
					defer t.wg.Done()

					t.onFire(e.alarmID, e.handle)
				}()
			}

			timerCh = resetTimer()
		}
	}
}
