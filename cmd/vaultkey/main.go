package main

import (
	"os"

	"github.com/vaultkey/vaultkey/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
