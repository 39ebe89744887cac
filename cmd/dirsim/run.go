package main

import (
	"fmt"
	"time"

	"github.com/pkg/browser"
	gopsmem "github.com/shirou/gopsutil/mem"
	"github.com/spf13/cobra"

	"github.com/sim-arch/dirsim/datarecording"
	"github.com/sim-arch/dirsim/directory"
	"github.com/sim-arch/dirsim/harness"
	memmapper "github.com/sim-arch/dirsim/mem/mem"
	"github.com/sim-arch/dirsim/sim"
)

var (
	numNodes    int
	coresPerPXN int
	accesses    int
	openReport  bool
	dbPath      string
	parallel    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a synthetic multi-node workload against one directory controller.",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().IntVar(&numNodes, "nodes", 2, "number of node harnesses to create")
	runCmd.Flags().IntVar(&coresPerPXN, "cores", 2, "cores per node")
	runCmd.Flags().IntVar(&accesses, "accesses", 64, "read/write accesses to issue per core")
	runCmd.Flags().BoolVar(&openReport, "open-report", false, "open the stats database's containing folder in a browser")
	runCmd.Flags().StringVar(&dbPath, "db", "", "sqlite database path (default: auto-generated)")
	runCmd.Flags().BoolVar(&parallel, "parallel", false, "use the parallel engine instead of the serial one")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if numNodes < 1 {
		return fmt.Errorf("dirsim: --nodes must be at least 1")
	}

	var engine sim.Engine
	if parallel {
		// The directory, memory stub, and every node only ever talk to the
		// sim.Engine interface, so swapping in the goroutine-parallel engine
		// needs no change anywhere else in the wiring.
		engine = sim.NewParallelEngine()
	} else {
		engine = sim.NewSerialEngine()
	}

	cfg, err := directory.NewConfigBuilder().
		WithCacheLineSize(64).
		WithEntryCacheSize(1024).
		Build()
	if err != nil {
		return err
	}

	dir := directory.NewComp("Directory", engine, cfg)
	memStub := harness.NewMemStub("Memory", engine, sim.GHz)

	memConn := sim.NewDirectConnection("MemConn", engine, sim.GHz)
	memConn.PlugIn(dir.MemPort())
	memConn.PlugIn(memStub.Port())

	dir.SetMemMapper(&memmapper.SinglePortMapper{Port: memStub.Port().AsRemote()})

	cpuConn := sim.NewDirectConnection("CPUConn", engine, sim.GHz)
	cpuConn.PlugIn(dir.CPUPort())

	nodes := make([]*harness.Node, numNodes)
	for i := 0; i < numNodes; i++ {
		name := fmt.Sprintf("Node%d", i)
		node := harness.NewNode(name, engine, sim.GHz, i, coresPerPXN)
		cpuConn.PlugIn(node.Port())
		node.SetLocalDirectory(dir.CPUPort().AsRemote())
		nodes[i] = node
	}

	for i, node := range nodes {
		for j := 0; j < numNodes; j++ {
			if j == i {
				continue
			}
			node.SetRemoteNode(j, nodes[j].Port().AsRemote())
		}
	}

	// sysDomain groups every port in the run under one name so the end-of-run
	// summary can list the whole topology without reaching back into each
	// component; it plays no part in message delivery itself.
	sysDomain := sim.NewDomain("System")
	sysDomain.AddPort("Directory.CPUPort", dir.CPUPort())
	sysDomain.AddPort("Directory.MemPort", dir.MemPort())
	sysDomain.AddPort("Memory.Port", memStub.Port())
	for i, node := range nodes {
		sysDomain.AddPort(fmt.Sprintf("Node%d.CPUPort", i), node.Port())
	}

	seedWorkload(nodes)

	// Broadcast destinations need a concrete port since the DirectConnection
	// used here routes point-to-point; a multi-cache deployment would name
	// a switch/bus port instead of a single peer.
	dir.SetBroadcastDestinations(nodes[0].Port().AsRemote(), memStub.Port().AsRemote())
	dir.AdvertiseCoherence()
	dir.TickNow()
	memStub.TickNow()
	for _, node := range nodes {
		node.TickNow()
	}

	start := time.Now()
	if err := engine.Run(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	rec := datarecording.New(dbPath)
	dir.FlushStats(rec)
	rec.Flush()

	reportResourceUsage()
	fmt.Printf("dirsim: simulation wall time %s\n", elapsed)
	fmt.Printf("dirsim: %s domain wired %d ports:\n", sysDomain.Name(), len(sysDomain.Ports()))
	for _, port := range sysDomain.Ports() {
		fmt.Printf("\t%s\n", port.Name())
	}

	if openReport {
		if err := browser.OpenFile("."); err != nil {
			fmt.Printf("dirsim: could not open report: %v\n", err)
		}
	}

	return nil
}

// seedWorkload pushes a handful of read/write tasks onto every core so the
// simulation has traffic to drive through the directory.
func seedWorkload(nodes []*harness.Node) {
	for _, node := range nodes {
		for c := 0; c < coresPerPXN; c++ {
			core := node.Core(c)

			for a := 0; a < accesses; a++ {
				addr := directory.Addr(uint64(a%8) * 64)
				write := a%3 == 0

				core.PushTask(func(addr directory.Addr, write bool) harness.Task {
					return func(_ *harness.Core) *harness.MemAccess {
						kind := harness.AccessRead
						if write {
							kind = harness.AccessWrite
						}

						return &harness.MemAccess{
							Kind: kind,
							Addr: addr,
							Size: 64,
							PXN:  -1,
						}
					}
				}(addr, write))
			}
		}
	}
}

func reportResourceUsage() {
	v, err := gopsmem.VirtualMemory()
	if err != nil {
		return
	}

	fmt.Printf("dirsim: host memory in use %.1f%%\n", v.UsedPercent)
}
