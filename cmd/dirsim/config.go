package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sim-arch/dirsim/directory"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the default directory controller configuration and exit.",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := directory.DefaultConfig()

	fmt.Printf("cache_line_size:        %d\n", cfg.CacheLineSize)
	fmt.Printf("entry_cache_size:       %d\n", cfg.EntryCacheSize)
	fmt.Printf("protocol:               %d\n", cfg.Protocol)
	fmt.Printf("mshr_num_entries:       %d\n", cfg.MSHRNumEntries)
	fmt.Printf("access_latency_cycles:  %d\n", cfg.AccessLatencyCycles)
	fmt.Printf("mshr_latency_cycles:    %d\n", cfg.MSHRLatencyCycles)
	fmt.Printf("max_requests_per_cycle: %d\n", cfg.MaxRequestsPerCycle)
	fmt.Printf("addr_range:             [0x%x, 0x%x)\n", cfg.AddrRangeStart, cfg.AddrRangeEnd)
	fmt.Printf("interleave_size:        %d\n", cfg.InterleaveSize)
	fmt.Printf("interleave_step:        %d\n", cfg.InterleaveStep)
	fmt.Printf("clock_freq:             %.0f Hz\n", float64(cfg.ClockFreq))
	fmt.Printf("min_packet_size:        %d\n", cfg.MinPacketSize)
	fmt.Printf("debug:                  %t (level %d)\n", cfg.Debug, cfg.DebugLevel)
	fmt.Printf("verbose:                %t\n", cfg.Verbose)

	return nil
}
