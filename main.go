package main

import "github.com/notargets/gosemi/cmd"

func main() {
	cmd.Execute()
}
