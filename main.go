package main

import "vividfusion/cmd"

func main() {
	cmd.Execute()
}
