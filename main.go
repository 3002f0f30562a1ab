package main

import (
	"os"

	"vantage/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
