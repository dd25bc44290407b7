package main

import "revbench/cmd"

func main() {
	cmd.Execute()
}
