package main

import (
	"encoding/binary"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/cespare/xxhash/v2"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/ripple"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// Each config builds a seeded random layered graph, mutates sources in
// bursts and checks the guarantees the engine documents: flush order is
// deterministic for a given call pattern, an effect runs at most once per
// burst, and dependency lists shrink with the branches actually taken.
type tortureConfig struct {
	name     string
	sources  int
	layers   int
	width    int
	fanIn    int
	bursts   int
	perBurst int
	repeats  int
	seed     int64
}

var configs = []tortureConfig{
	{name: "narrow deep", sources: 4, layers: 12, width: 4, fanIn: 2, bursts: 500, perBurst: 2, repeats: 3, seed: 1},
	{name: "wide shallow", sources: 50, layers: 3, width: 100, fanIn: 4, bursts: 500, perBurst: 10, repeats: 3, seed: 2},
	{name: "dense mesh", sources: 20, layers: 6, width: 30, fanIn: 8, bursts: 1_000, perBurst: 5, repeats: 3, seed: 3},
}

func main() {
	log.Print("starting ripple torture runs, please wait...")
	defer log.Print("finished ripple torture runs")

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"config", "bursts", "effect runs", "order digest", "deterministic", "coalesced"})

	failed := false
	for _, cfg := range configs {
		first, runs, coalesced := runOnce(cfg)
		deterministic := true
		for r := 1; r < cfg.repeats; r++ {
			digest, _, _ := runOnce(cfg)
			if digest != first {
				deterministic = false
			}
		}
		if !deterministic || !coalesced {
			failed = true
		}

		table.Append([]string{
			cfg.name,
			humanize.Comma(int64(cfg.bursts)),
			humanize.Comma(int64(runs)),
			fmt.Sprintf("%016x", first),
			fmt.Sprint(deterministic),
			fmt.Sprint(coalesced),
		})
	}

	if err := checkBranchMinimality(); err != nil {
		log.Printf("branch minimality: %v", err)
		failed = true
	} else {
		log.Print("branch minimality: ok")
	}

	table.Render()
	if failed {
		os.Exit(1)
	}
}

// runOnce builds the graph fresh from the config's seed, drives it and
// returns the xxhash digest of the observed effect execution order. Two runs
// of the same config must return the same digest.
func runOnce(cfg tortureConfig) (digest uint64, totalRuns int, coalesced bool) {
	rng := rand.New(rand.NewSource(cfg.seed))
	rs := ripple.CreateReactiveSystem(func(from ripple.SignalAware, err error) {
		log.Panic(err)
	})

	sources := make([]*ripple.WriteableSignal[int], cfg.sources)
	for i := range sources {
		sources[i] = ripple.Signal(rs, rng.Intn(1000))
	}

	prev := make([]func() int, len(sources))
	for i, s := range sources {
		s := s
		prev[i] = func() int { return s.Value() }
	}
	for l := 0; l < cfg.layers; l++ {
		layer := make([]func() int, cfg.width)
		for i := 0; i < cfg.width; i++ {
			reads := make([]func() int, cfg.fanIn)
			for j := range reads {
				reads[j] = prev[rng.Intn(len(prev))]
			}
			c := ripple.Computed(rs, func(oldValue int) int {
				sum := 0
				for _, read := range reads {
					sum += read()
				}
				return sum
			})
			layer[i] = func() int { return c.Value() }
		}
		prev = layer
	}

	order := []uint32{}
	burstRuns := map[uint32]int{}
	for i, read := range prev {
		id := uint32(i)
		read := read
		ripple.Effect(rs, func() error {
			read()
			order = append(order, id)
			burstRuns[id]++
			totalRuns++
			return nil
		})
	}

	coalesced = true
	for b := 0; b < cfg.bursts; b++ {
		clear(burstRuns)
		rs.Batch(func() {
			for i := 0; i < cfg.perBurst; i++ {
				src := sources[rng.Intn(len(sources))]
				src.SetValue(src.Peek() + 1 + rng.Intn(10))
			}
		})
		for _, n := range burstRuns {
			if n > 1 {
				coalesced = false
			}
		}
	}

	h := xxhash.New()
	var buf [4]byte
	for _, id := range order {
		binary.LittleEndian.PutUint32(buf[:], id)
		h.Write(buf[:])
	}
	return h.Sum64(), totalRuns, coalesced
}

// checkBranchMinimality verifies that toggling a condition swaps the
// effect's dependency set rather than growing it.
func checkBranchMinimality() error {
	rs := ripple.CreateReactiveSystem(func(from ripple.SignalAware, err error) {
		log.Panic(err)
	})
	cond := ripple.Signal(rs, true)
	a := ripple.Signal(rs, 1)
	b := ripple.Signal(rs, 2)

	observed := mapset.NewSet[string]()
	runs := 0
	ripple.Effect(rs, func() error {
		runs++
		observed.Clear()
		observed.Add("cond")
		if cond.Value() {
			observed.Add("a")
			a.Value()
		} else {
			observed.Add("b")
			b.Value()
		}
		return nil
	})

	if want := mapset.NewSet("cond", "a"); !observed.Equal(want) {
		return fmt.Errorf("initial read set %v, want %v", observed, want)
	}

	cond.SetValue(false)
	if want := mapset.NewSet("cond", "b"); !observed.Equal(want) {
		return fmt.Errorf("toggled read set %v, want %v", observed, want)
	}

	// the stale branch must be pruned: triggering it cannot re-run the effect
	before := runs
	a.SetValue(100)
	if runs != before {
		return fmt.Errorf("stale branch re-ran the effect (%d -> %d runs)", before, runs)
	}

	b.SetValue(200)
	if runs != before+1 {
		return fmt.Errorf("live branch missed an update (%d -> %d runs)", before, runs)
	}
	return nil
}
