// Package pipeio shuttles bytes between two streams, typically a
// transport stream and local standard I/O.
package pipeio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"

	"github.com/muesli/cancelreader"
)

// Pipe copies data between rwc1 and rwc2 in both directions until one
// side ends, the context is cancelled, or an error occurs. Both
// streams are closed before Pipe returns. Errors from the copies are
// reported through logfunc, except the expected ones from tearing a
// pipe down (cancelled reads, peer resets).
func Pipe(ctx context.Context, rwc1, rwc2 io.ReadWriteCloser, logfunc func(error)) {
	var wg sync.WaitGroup
	var o sync.Once

	teardown := func() {
		rwc1.Close()
		rwc2.Close()

		wg.Done()
	}
	wg.Add(1)

	stop := context.AfterFunc(ctx, func() { o.Do(teardown) })
	defer stop()

	go func() {
		_, err := io.Copy(rwc1, rwc2)
		if err != nil && !ignorable(err) {
			logfunc(fmt.Errorf("io.Copy(rwc1, rwc2): %s", err))
		}

		o.Do(teardown)
	}()

	go func() {
		_, err := io.Copy(rwc2, rwc1)
		if err != nil && !ignorable(err) {
			logfunc(fmt.Errorf("io.Copy(rwc2, rwc1): %s", err))
		}

		o.Do(teardown)
	}()

	wg.Wait()
}

// ignorable reports whether err is an expected consequence of closing
// one end of the pipe rather than a real failure.
func ignorable(err error) bool {
	return errors.Is(err, cancelreader.ErrCanceled) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrClosedPipe)
}
