package main

import "github.com/shifterhq/shifter/cmd"

func main() {
	cmd.Execute()
}
