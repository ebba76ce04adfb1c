package main

import "codesift/cmd"

func main() {
	cmd.Execute()
}
