package main

import (
	"os"

	"github.com/isidentical/isolate/cmd/isolate/cli"
)

func main() {
	os.Exit(cli.Execute())
}
