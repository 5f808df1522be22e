package main

import "github.com/openxt/govgt/cmd"

func main() {
	cmd.Execute()
}
