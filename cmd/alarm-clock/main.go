// Command alarm-clock manages alarms and runs the daemon that rings them.
package main

import (
	_ "time/tzdata"

	"github.com/oshokin/alarm-clock/cmd/alarm-clock/cmd"
)

func main() {
	cmd.Execute()
}
