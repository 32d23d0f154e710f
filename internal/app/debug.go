package app

import (
	"fmt"
	"os"
	"time"
)

// debug enables phase timing output (DJE_DEBUG=1).
var debug = os.Getenv("DJE_DEBUG") == "1"

func debugf(format string, args ...any) {
	if !debug {
		return
	}
	fmt.Fprintf(os.Stderr, "[%s] [debug] %s\n",
		time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
}
