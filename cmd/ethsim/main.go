package main

import "github.com/sarchlab/ethsim/cmd/ethsim/cmd"

func main() {
	cmd.Execute()
}
