package main

import "mspro-labs/stock-watch/cmd"

func main() {
	cmd.Execute()
}
