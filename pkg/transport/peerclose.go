package transport

import (
	"errors"
	"io"
	"runtime"
	"syscall"
)

// resetIsClose marks platforms whose kernels report a peer-initiated
// shutdown as ECONNRESET instead of a zero-length read. On those the
// reset must be folded into end-of-file, not surfaced as a raw error.
var resetIsClose = runtime.GOOS == "darwin" || runtime.GOOS == "freebsd"

// peerClosed reports whether err means the peer closed the stream.
func peerClosed(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	if resetIsClose && errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	return false
}
