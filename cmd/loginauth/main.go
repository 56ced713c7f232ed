package main

import "github.com/stefvanhouten/loginauth/cmd/loginauth/cmd"

func main() {
	cmd.Execute()
}
