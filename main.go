package main

import "github.com/revature/scopecheck/cmd"

func main() {
	cmd.Execute()
}
