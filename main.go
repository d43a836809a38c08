package main

import "github.com/kraklabs/cmx/cmd"

func main() {
	cmd.Execute()
}
