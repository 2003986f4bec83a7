// Package sim drives the full evolution loop: pressure solve, rheology
// update, flow derivation, topology (re)classification and RBC
// propagation, in the fixed ordering of spec.md §4.10, plus checkpoint
// persistence and invariant verification (SPEC_FULL.md §3.1, §3.4).
package sim

import (
	"encoding/json"
	"os"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/gosl/rnd"
)

// Config holds the global run parameters, grounded on inp.Data's
// JSON-tagged field style.
type Config struct {
	Desc   string `json:"desc"`   // free-text description of the run
	DirOut string `json:"dirout"` // output directory for checkpoints/snapshots

	Dt       float64 `json:"dt"`       // fixed timestep [s]
	NSteps   int     `json:"nsteps"`   // number of evolve() steps to run
	SeedRand int64    `json:"seedrand"` // injector RNG seed

	Invivo          bool    `json:"invivo"`          // use in-vivo (vs in-vitro) rheology fits
	PlasmaViscosity float64 `json:"plasmaviscosity"` // 0 => physio default
	DThreshold      float64 `json:"dthreshold"`      // capillary diameter cutoff [µm]

	SampleEvery     int  `json:"sampleevery"`     // steps between sample.Take calls; 0 disables
	CheckpointEvery int  `json:"checkpointevery"` // steps between checkpoints; 0 disables
	VerifyEvery     int  `json:"verifyevery"`     // steps between invariant checks; 0 disables
	AnalyzeBifEvents bool `json:"analyzebifevents"` // accumulate a sample.BifTally every step

	MassBalanceTol float64 `json:"massbalancetol"`

	// RandomParams, when non-empty, perturbs PlasmaViscosity for a single
	// Monte-Carlo sensitivity run (SPEC_FULL.md §3.3, grounded on
	// inp/sim.go's AdjRandom rnd.Variables field). Left nil for a plain
	// deterministic run; ApplyRandomParams draws and overwrites
	// PlasmaViscosity once, at NewDriver time.
	RandomParams rnd.Variables `json:"-"`
}

// PlasmaViscosityRandom builds a Config.RandomParams entry that draws
// PlasmaViscosity from the named gosl/rnd distribution (e.g. "normal"),
// centered on mean m with spread s and clamped to [lo,hi].
func PlasmaViscosityRandom(distName string, m, s, lo, hi float64) rnd.Variables {
	prm := &fun.Prm{N: "plasmaViscosity", V: m}
	return rnd.Variables{{
		D: rnd.GetDistribution(distName), M: m, S: s, Min: lo, Max: hi,
		Prm: prm, Key: "plasmaViscosity",
	}}
}

// ApplyRandomParams draws the configured random variables and writes the
// sampled plasma viscosity back into the Config. No-op if RandomParams
// is empty.
func (cfg *Config) ApplyRandomParams() {
	if len(cfg.RandomParams) == 0 {
		return
	}
	if err := cfg.RandomParams.Init(); err != nil {
		chk.Panic("sim: cannot initialise random parameters: %v", err)
	}
	for _, v := range cfg.RandomParams {
		if v.Key == "plasmaViscosity" {
			cfg.PlasmaViscosity = v.Prm.V
		}
	}
}

// DefaultConfig returns a Config with spec.md's stated defaults.
func DefaultConfig() Config {
	return Config{
		Dt:             1e-3,
		Invivo:         true,
		DThreshold:     10.0,
		MassBalanceTol: 1e-6,
	}
}

// LoadConfig reads a Config from a JSON file (inp.Data's ".sim" file
// convention, generalized to this module's own key set).
func LoadConfig(path string) Config {
	f, err := os.Open(path)
	if err != nil {
		chk.Panic("sim: cannot open config %q: %v", path, err)
	}
	defer f.Close()
	cfg := DefaultConfig()
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		chk.Panic("sim: cannot parse config %q: %v", path, err)
	}
	return cfg
}
