// Command bindtrace loads components with bind tracing on and inspects
// recorded bind traces.
package main

import (
	"github.com/sarchlab/bindtrace/bindtrace/cmd"
	"github.com/tebeka/atexit"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
