package main

import "github.com/novellus/pixel-dungeon-network/cli"

func main() {
	cli.Execute()
}
