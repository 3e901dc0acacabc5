package main

import (
	"os"

	"github.com/conneroisu/rune/cmd"
	"github.com/conneroisu/rune/internal/demo"
)

func main() {
	app := cmd.App{Catalog: demo.Catalog(), Register: demo.Register}
	if err := cmd.Execute(app); err != nil {
		os.Exit(1)
	}
}
