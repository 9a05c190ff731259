package main

import "surplus-relay.com/surplus-relay/cmd"

func main() {
	cmd.Execute()
}
