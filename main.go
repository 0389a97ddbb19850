package main

import "kaoban/cmd"

func main() {
	cmd.Execute()
}
