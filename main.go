package main

import "grayblend/cmd"

func main() {
	cmd.Execute()
}
