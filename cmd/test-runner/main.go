// Package main runs the automaton scenario suite against this build and
// exits non-zero if any scenario fails.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/logger"
	"github.com/MRamiBalles/CellularAutomata3D/test"
)

func main() {
	fmt.Println("CELLULAR AUTOMATA 3D - SCENARIO SUITE")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	suite := test.NewSuite(logger.NewLogger(), os.Stdout)
	results := suite.RunAll(ctx)

	passed, failed := 0, 0
	for _, r := range results {
		if r.Passed {
			passed++
		} else {
			failed++
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("   passed:  %d\n", passed)
	fmt.Printf("   failed:  %d\n", failed)
	if skipped := len(suite.Scenarios()) - len(results); skipped > 0 {
		fmt.Printf("   skipped: %d\n", skipped)
	}

	if failed > 0 || len(results) < len(suite.Scenarios()) {
		os.Exit(1)
	}
}
