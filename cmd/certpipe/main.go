package main

import "github.com/jmcleod/certpipe/cmd/certpipe/cmd"

func main() {
	cmd.Execute()
}
