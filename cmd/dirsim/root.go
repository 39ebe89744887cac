// Package main provides the command-line entry point for dirsim, a
// standalone exerciser for the directory controller.
package main

import (
	"fmt"
	"log"
	"os"
	"runtime/pprof"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var rootCmd = &cobra.Command{
	Use:   "dirsim",
	Short: "dirsim drives a cache-coherence directory controller against a synthetic node workload.",
	Long: `dirsim wires a directory controller, a backing memory, and one or more ` +
		`node harnesses together and runs them to completion, reporting coherence ` +
		`statistics at exit.`,
}

var cpuProfile string

func init() {
	rootCmd.PersistentFlags().StringVar(&cpuProfile, "cpuprofile", "",
		"write a pprof CPU profile to this file")

	if err := godotenv.Load(); err != nil {
		log.Printf("dirsim: no .env file loaded: %v", err)
	}
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	defer atexit.Exit(0)

	// Initializers run after flag parsing, so cpuProfile is set by then.
	cobra.OnInitialize(func() {
		if cpuProfile == "" {
			return
		}

		f, err := os.Create(cpuProfile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		atexit.Register(pprof.StopCPUProfile)
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
