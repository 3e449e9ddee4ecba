package main

import "dealscout/cli"

func main() {
	cli.Execute()
}
