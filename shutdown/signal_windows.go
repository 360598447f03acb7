//go:build windows

package shutdown

import "os"

func terminationSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// reraise exits: Windows cannot deliver a console interrupt to itself.
func reraise(os.Signal) {
	os.Exit(1)
}
