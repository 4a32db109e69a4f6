package main

import "github.com/oshokin/pulse-sync/cmd/pulse-monitor/cmd"

func main() {
	cmd.Execute()
}
