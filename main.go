package main

import "github.com/lhudash/chisa-api/cmd"

func main() {
	cmd.Execute()
}
