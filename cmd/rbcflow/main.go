// Command rbcflow runs a fixed-dt microvascular RBC transport simulation
// with run parameters from a JSON config file, resuming from the
// checkpoint given with -resume. Building a fresh network from the config
// file is not supported: without -resume the command panics.
package main

import (
	"flag"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/utl"

	"github.com/vasculature/rbcflow/sim"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			chk.Verbose = true
			for i := 8; i > 3; i-- {
				chk.CallerInfo(i)
			}
			io.PfRed("ERROR: %v\n", err)
		}
	}()

	resume := flag.String("resume", "", "checkpoint file to resume from, instead of building a fresh network")
	steps := flag.Int("steps", 0, "number of steps to run; 0 uses cfg.nsteps")
	flag.Parse()

	var fnamepath string
	if len(flag.Args()) > 0 {
		fnamepath = flag.Arg(0)
	} else {
		chk.Panic("Please provide a config filename. Ex.: network.sim.json")
	}

	io.PfWhite("\nrbcflow -- discrete RBC microvascular transport\n\n")

	cfg := sim.LoadConfig(fnamepath)

	defer utl.DoProf(false)()

	var d *sim.Driver
	if *resume != "" {
		io.Pf("> resuming from %s\n", *resume)
		d = sim.Load(*resume, cfg)
	} else {
		chk.Panic("rbcflow: fresh-network construction from a config file needs a network " +
			"loader for the target graph format; only -resume is wired in this build")
	}

	n := *steps
	if n == 0 {
		n = cfg.NSteps
	}
	duration := float64(n) * cfg.Dt
	init := *resume == ""
	io.Pf("> running duration=%.6g (dt=%.3e, init=%v)\n", duration, cfg.Dt, init)
	d.Evolve(duration, cfg.Dt, init)

	io.PfGreen("> done: t=%.6f, steps=%d, rbcMovedAll=%d\n", d.T, d.Step_, d.RBCMovedAll)
}
