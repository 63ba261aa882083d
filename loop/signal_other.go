//go:build !unix

package loop

import "os"

var signals = map[string]os.Signal{
	"INT":  os.Interrupt,
	"KILL": os.Kill,
}

func lookupSignal(name string) (os.Signal, bool) {
	sig, found := signals[name]
	return sig, found
}
