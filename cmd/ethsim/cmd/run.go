package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/ethsim/eth"
	"github.com/sarchlab/ethsim/monitoring"
	"github.com/sarchlab/ethsim/sim"
	"github.com/sarchlab/ethsim/simulation"
	"github.com/sarchlab/ethsim/switching/lookup"
	"github.com/sarchlab/ethsim/switching/mactable"
	"github.com/sarchlab/ethsim/switching/traffic"
	"github.com/sarchlab/ethsim/tracing"
)

var runFlags = struct {
	numPorts    int
	tableSize   int
	policy      string
	numFrames   int
	seed        int64
	staleness   float64
	monitor     bool
	monitorPort int
	openBrowser bool
	output      string
	trace       bool
}{}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a canned traffic scenario through the switch core.",
	Run: func(_ *cobra.Command, _ []string) {
		runScenario()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&runFlags.numPorts, "ports",
		envInt("ETHSIM_PORTS", 4), "number of switch ports")
	runCmd.Flags().IntVar(&runFlags.tableSize, "table-size",
		envInt("ETHSIM_TABLE_SIZE", 64), "number of MAC table slots")
	runCmd.Flags().StringVar(&runFlags.policy, "policy",
		envStr("ETHSIM_POLICY", "wrap"), "replacement policy (wrap|oldest)")
	runCmd.Flags().IntVar(&runFlags.numFrames, "frames",
		envInt("ETHSIM_FRAMES", 100), "number of frames to inject")
	runCmd.Flags().Int64Var(&runFlags.seed, "seed",
		1, "random seed for the traffic pattern")
	runCmd.Flags().Float64Var(&runFlags.staleness, "staleness",
		0, "entry staleness threshold in seconds, 0 disables aging")
	runCmd.Flags().BoolVar(&runFlags.monitor, "monitor",
		false, "start the monitoring server")
	runCmd.Flags().IntVar(&runFlags.monitorPort, "monitor-port",
		envInt("ETHSIM_MONITOR_PORT", 0), "monitoring server port")
	runCmd.Flags().BoolVar(&runFlags.openBrowser, "open",
		false, "open the monitoring page in the browser")
	runCmd.Flags().StringVar(&runFlags.output, "output",
		envStr("ETHSIM_OUTPUT", ""), "output database file name")
	runCmd.Flags().BoolVar(&runFlags.trace, "trace",
		false, "record per-frame traces to the output database")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid %s: %s\n", key, v)
		os.Exit(1)
	}

	return n
}

func buildPolicy() mactable.ReplacementPolicy {
	switch runFlags.policy {
	case "wrap":
		return mactable.NewWrapPolicy()
	case "oldest":
		return mactable.NewOldestPolicy(1)
	default:
		fmt.Fprintf(os.Stderr, "unknown policy %s\n", runFlags.policy)
		os.Exit(1)
		return nil
	}
}

func runScenario() {
	builder := simulation.MakeBuilder()
	if !runFlags.monitor {
		builder = builder.WithoutMonitoring()
	}
	if runFlags.monitorPort > 0 {
		builder = builder.WithMonitorPort(runFlags.monitorPort)
	}
	if runFlags.openBrowser {
		builder = builder.WithMonitorAutoOpen()
	}
	if runFlags.output != "" {
		builder = builder.WithOutputFileName(runFlags.output)
	}

	s := builder.Build()
	engine := s.GetEngine()

	core := lookup.MakeBuilder().
		WithEngine(engine).
		WithNumPorts(runFlags.numPorts).
		WithTableSize(runFlags.tableSize).
		WithPolicy(buildPolicy()).
		WithDataRecorder(s.GetDataRecorder()).
		Build("SwitchCore")
	s.RegisterComponent(core)

	scrubber := lookup.MakeScrubberBuilder().
		WithEngine(engine).
		WithLookup(core).
		Build("Scrubber")
	s.RegisterComponent(scrubber)
	scrubber.SetStaleness(sim.VTimeInSec(runFlags.staleness))

	agent := traffic.MakeBuilder().
		WithEngine(engine).
		WithFrameSink(core.In).
		Build("Agent")
	s.RegisterComponent(agent)
	core.SetMaskConsumer(agent.In)

	conn := sim.NewDirectConnection("Conn", engine, 1*sim.GHz)
	conn.PlugIn(agent.Out)
	conn.PlugIn(agent.In)
	conn.PlugIn(core.In)
	conn.PlugIn(core.Out)

	if runFlags.trace {
		tracing.CollectTrace(core, s.GetVisTracer())
	}

	scheduleTraffic(agent)

	var bar *monitoring.ProgressBar
	if runFlags.monitor {
		total := uint64(runFlags.numPorts + runFlags.numFrames)
		bar = s.GetMonitor().CreateProgressBar("Frame replay", total)
		bar.AddInProgress(total)
	}

	err := engine.Run()
	if err != nil {
		panic(err)
	}

	if bar != nil {
		bar.CompleteInProgress(uint64(len(agent.Decisions())))
	}

	printDecisions(agent)
	printCounters(core)

	s.Terminate()
	atexit.Exit(0)
}

// scheduleTraffic injects a learning phase followed by a lookup phase: every
// port announces a station address, then each station sends one frame to a
// randomly chosen peer.
func scheduleTraffic(agent *traffic.Comp) {
	rng := rand.New(rand.NewSource(runFlags.seed))

	stations := make([]eth.MacAddr, runFlags.numPorts)
	for i := range stations {
		stations[i] = eth.MacAddr(0x020000000000 | uint64(i+1))
		agent.ScheduleFrame(eth.Broadcast, stations[i], i, 16)
	}

	for i := 0; i < runFlags.numFrames; i++ {
		src := rng.Intn(len(stations))
		dst := rng.Intn(len(stations))
		agent.ScheduleFrame(stations[dst], stations[src], src, 16)
	}
}

func printDecisions(agent *traffic.Comp) {
	for i, d := range agent.Decisions() {
		fmt.Printf("frame %4d: ingress %d, dst %s, mask %#08x\n",
			i, d.SrcPort, d.DstAddr, uint32(d.Mask))
	}
}

func printCounters(core *lookup.Comp) {
	c := core.Counters()

	fmt.Println()
	fmt.Printf("frames:            %d\n", c.Frames)
	fmt.Printf("hits:              %d\n", c.Hits)
	fmt.Printf("misses:            %d\n", c.Misses)
	fmt.Printf("masks sent:        %d\n", c.MasksSent)
	fmt.Printf("learns:            %d\n", c.Table.Learns)
	fmt.Printf("refreshes:         %d\n", c.Table.Refreshes)
	fmt.Printf("evictions:         %d\n", c.Table.Evictions)
	fmt.Printf("scrub evictions:   %d\n", c.Table.ScrubEvictions)
	fmt.Printf("port changes:      %d\n", c.Table.PortChanges)
	fmt.Printf("mobility warnings: %d\n", c.Table.MobilityWarnings)
	fmt.Printf("invalid learns:    %d\n", c.Table.InvalidLearns)
	fmt.Printf("integrity errors:  %d\n", c.Table.IntegrityErrors)
}
