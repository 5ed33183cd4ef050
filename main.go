package main

import "github.com/spooky-finn/okx-depth-bridge/cmd"

func main() {
	cmd.Execute()
}
