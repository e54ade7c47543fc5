package main

import "github.com/foldertalk/foldertalk/internal/cmd"

func main() {
	cmd.Execute()
}
