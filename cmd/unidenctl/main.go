// unidenctl is a command line client for a Uniden scanner on a local serial port
// or behind a scanner_api instance.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
