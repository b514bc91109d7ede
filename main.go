package main

import "imoperator/cmd"

func main() {
	cmd.Execute()
}
