//go:build unix

package loop

import (
	"os"

	"golang.org/x/sys/unix"
)

func lookupSignal(name string) (os.Signal, bool) {
	if len(name) == 0 {
		return nil, false
	}

	sig := unix.SignalNum("SIG" + name)
	if sig == 0 {
		return nil, false
	}

	return sig, true
}
