package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/pfsys/pfs/internal/mount"
	"github.com/pfsys/pfs/internal/ui"
)

// runREPL serves the shell on the plain terminal when the UI is disabled.
func runREPL(ctx context.Context, table *mount.Table) {
	shell := ui.NewShell(table)
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Print("pfs> ")
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Text()
		if line == "exit" {
			return
		}
		if out := shell.Run(line); out != "" {
			fmt.Println(out)
		}
		fmt.Print("pfs> ")
	}
}
