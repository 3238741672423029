package main

import (
	"os"

	"medical-access-ledger/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
