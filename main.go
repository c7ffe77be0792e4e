package main

import (
	"runtime"

	"flow-player/cmd"
)

// SDL needs its calls on the main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	cmd.Execute()
}
