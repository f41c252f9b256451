// main.go
//
// Entry point of the halo-sim binary; the CLI lives in cmd/root.go

package main

import (
	"github.com/halo-sim/halo-sim/cmd"
)

func main() {
	cmd.Execute()
}
