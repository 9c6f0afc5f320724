// Package stop implements a pattern for shutting down a group of long-lived
// components, such as the HTTP frontend and the document store behind it.
package stop

import (
	"sync"
)

// Channel is used to return zero or more errors asynchronously. Call Done()
// once to pass errors to the Channel.
type Channel chan []error

// Result is a receive-only version of Channel. Call Wait() once to receive any
// returned errors.
type Result <-chan []error

// Done adds the non-nil errors among errs to the Channel and closes it,
// indicating the caller has finished stopping. It should be called exactly
// once.
func (ch Channel) Done(errs ...error) {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}

	if len(nonNil) > 0 {
		ch <- nonNil
	}
	close(ch)
}

// Result converts a Channel to a Result.
func (ch Channel) Result() Result {
	return Result((chan []error)(ch))
}

// Wait blocks until Done() is called on the underlying Channel and returns any
// errors. It should be called exactly once.
func (r Result) Wait() []error {
	return <-r
}

// AlreadyStopped is a closed error channel to be used by Funcs when
// an element was already stopped.
var AlreadyStopped Result

// AlreadyStoppedFunc is a Func that returns AlreadyStopped.
var AlreadyStoppedFunc = func() Result { return AlreadyStopped }

func init() {
	closeMe := make(Channel)
	close(closeMe)
	AlreadyStopped = closeMe.Result()
}

// Stopper is an interface that allows a clean shutdown.
type Stopper interface {
	// Stop returns a Result that indicates whether the stop was
	// successful.
	//
	// Stop should return immediately and perform the actual shutdown in a
	// separate goroutine.
	Stop() Result
}

// Func is a function that can be used to provide a clean shutdown.
type Func func() Result

// Group is a collection of Stoppers that can be stopped all at once.
type Group struct {
	stoppables []Func
	sync.Mutex
}

// NewGroup allocates a new Group.
func NewGroup() *Group {
	return &Group{
		stoppables: make([]Func, 0),
	}
}

// Add appends a Stopper to the Group.
func (cg *Group) Add(toAdd Stopper) {
	cg.AddFunc(toAdd.Stop)
}

// AddFunc appends a Func to the Group.
func (cg *Group) AddFunc(toAddFunc Func) {
	cg.Lock()
	defer cg.Unlock()

	cg.stoppables = append(cg.stoppables, toAddFunc)
}

// Stop stops all members of the Group in the reverse order they were added,
// waiting for each one before stopping the next, so that components are torn
// down before whatever they depend on.
//
// The returned Result carries every error returned by the members.
func (cg *Group) Stop() Result {
	cg.Lock()
	stoppables := cg.stoppables
	cg.stoppables = nil
	cg.Unlock()

	whenDone := make(Channel)
	go func() {
		var errs []error
		for i := len(stoppables) - 1; i >= 0; i-- {
			waitFor := stoppables[i]()
			if waitFor == nil {
				panic("stop: received a nil Result from Stop")
			}
			errs = append(errs, waitFor.Wait()...)
		}
		whenDone.Done(errs...)
	}()

	return whenDone.Result()
}
