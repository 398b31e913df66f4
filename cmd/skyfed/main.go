package main

import "skyfed/internal/cmd"

func main() {
	cmd.Run()
}
