package main

import "github.com/oshokin/pulse-sync/cmd/pulse-simulator/cmd"

func main() {
	cmd.Execute()
}
