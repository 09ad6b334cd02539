package main

import "github.com/OpenTraceLab/kicadsync/cmd/schsync/cmd"

func main() {
	cmd.Execute()
}
