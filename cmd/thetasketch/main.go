package main

import (
	"fmt"
	"os"

	_ "github.com/brimdata/thetasketch/cmd/thetasketch/build"
	_ "github.com/brimdata/thetasketch/cmd/thetasketch/inspect"
	_ "github.com/brimdata/thetasketch/cmd/thetasketch/merge"
	_ "github.com/brimdata/thetasketch/cmd/thetasketch/pack"
	"github.com/brimdata/thetasketch/cmd/thetasketch/root"
	_ "github.com/brimdata/thetasketch/cmd/thetasketch/sort"
)

func main() {
	if err := root.Thetasketch.Exec(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
