package main

import "github.com/lepinkainen/ebookgrid/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
