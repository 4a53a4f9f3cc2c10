package main

import "github.com/doinghun/merlabot-public/cmd"

func main() {
	cmd.Execute()
}
