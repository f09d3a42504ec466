package main

import "github.com/MeKo-Tech/comicocr/cmd/comicocr/cmd"

func main() {
	cmd.Execute()
}
