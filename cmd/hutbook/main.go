package main

import "github.com/example/hutbook/cmd"

func main() {
	cmd.Execute()
}
