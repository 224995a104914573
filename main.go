package main

import "github.com/Alijeyrad/simorq_queue/cmd"

func main() {
	cmd.Execute()
}
