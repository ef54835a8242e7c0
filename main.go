package main

import "github.com/swind/go-enigma/cmd"

func main() {
	cmd.Execute()
}
