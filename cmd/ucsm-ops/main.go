// Command ucsm-ops runs one UCS Manager lifecycle operation per invocation
// and prints the spoken result.
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
