package main

import "github.com/pranavmangal/otpfill/cmd"

func main() {
	cmd.Execute()
}
