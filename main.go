package main

import "github.com/Digital-Shane/autotag/internal/cmd"

func main() {
	cmd.Execute()
}
