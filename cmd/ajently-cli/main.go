package main

import "github.com/Gpcode233/Ajently/cmd/ajently-cli/cmd"

func main() {
	cmd.Execute()
}
