package main

import "marketing-export/cmd"

func main() {
	cmd.Execute()
}
