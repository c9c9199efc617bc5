// Command eventline runs the event-ingestion and analytics service.
package main

import (
	"fmt"
	"os"

	"eventline.dev/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
