package main

import "github.com/eflav/aio-index/cmd"

func main() {
	cmd.Execute()
}
