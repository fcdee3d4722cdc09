package main

import "fairytale-pipeline/cmd"

func main() {
	cmd.Execute()
}
