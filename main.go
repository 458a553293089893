package main

import "filesdash/xref/cmd"

func main() {
	cmd.Execute()
}
