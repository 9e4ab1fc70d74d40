package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/delaneyj/ripple"
	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

const (
	iterationsKey = "iterations"
	cpuProfileKey = "cpuprofile"
)

var (
	ww = []int{1, 10, 100, 1_000}
	hh = []int{1, 10, 100, 1_000}
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Propagation benchmarks for ripple",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  iterationsKey,
				Usage: "Mutation bursts per graph size",
				Value: 100,
			},
			&cli.StringFlag{
				Name:  cpuProfileKey,
				Usage: "Write a CPU profile to this path",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if path := cmd.String(cpuProfileKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	iters := int(cmd.Int(iterationsKey))
	log.Printf("propagate benchmark, %s iterations per size, please wait...", humanize.Comma(int64(iters)))

	tbl := table.NewWriter()
	tbl.SetTitle("ripple propagate")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	for _, w := range ww {
		for _, h := range hh {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})

			rs := ripple.CreateReactiveSystem(func(from ripple.SignalAware, err error) {
				log.Panic(err)
			})
			src := ripple.Signal(rs, 1)
			for i := 0; i < w; i++ {
				read := func() int { return src.Value() }
				for j := 0; j < h; j++ {
					prev := read
					c := ripple.Computed(rs, func(oldValue int) int {
						return prev() + 1
					})
					read = func() int { return c.Value() }
				}

				last := read
				ripple.Effect(rs, func() error {
					last()
					return nil
				})
			}

			for i := 0; i < iters; i++ {
				start := time.Now()
				src.SetValue(src.Peek() + 1)
				tach.AddTime(time.Since(start))
			}

			m := tach.Calc()
			tbl.AppendRow(table.Row{
				fmt.Sprintf("propagate %dx%d", w, h),
				m.Time.Avg, m.Time.Min, m.Time.P75, m.Time.P99, m.Time.Max,
			})
		}
	}

	tbl.Render()
	return nil
}
