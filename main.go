package main

import "github.com/encodeous/ara/cmd"

func main() {
	cmd.Execute()
}
