// Command loadtest dispara uma rajada de logins contra um endpoint protegido e
// compara execuções com e sem o gate.
//
// Uso:
//
//	loadtest run --label before --mode moderate
//	loadtest run --label after --target http://localhost:8081/api/users/login
//	loadtest compare
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Run     RunCmd     `cmd:"" help:"Run a login flood and save the results."`
	Compare CompareCmd `cmd:"" help:"Compare the before/after result files."`

	ResultsDir string `name:"results-dir" help:"Directory for result files." default:"results" type:"path"`
}

type RunCmd struct {
	Label       string        `help:"Result label (before, after or any name)." default:"run"`
	Mode        string        `help:"Preset: light, moderate, heavy, extreme, massive." enum:"light,moderate,heavy,extreme,massive" default:"moderate"`
	Target      string        `help:"Login endpoint." default:"http://localhost:8081/api/users/login"`
	Concurrency int           `help:"Overrides the preset concurrency." default:"0"`
	Total       int           `help:"Overrides the preset request count." default:"0"`
	Rate        float64       `help:"Max requests per second (0 = unpaced)." default:"0"`
	Timeout     time.Duration `help:"Per-request timeout." default:"5s"`
}

func (c *RunCmd) Run(cli *CLI) error {
	plan := presets[c.Mode]
	if c.Concurrency > 0 {
		plan.Concurrency = c.Concurrency
	}
	if c.Total > 0 {
		plan.Total = c.Total
	}
	plan.Target = c.Target
	plan.Rate = c.Rate
	plan.Timeout = c.Timeout

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("running %q against %s: total=%d concurrency=%d\n", c.Label, plan.Target, plan.Total, plan.Concurrency)
	res := NewAttacker(plan).Run(ctx)
	printResult(os.Stdout, c.Label, res)

	path, err := saveResult(cli.ResultsDir, c.Label, res)
	if err != nil {
		return err
	}
	fmt.Printf("results saved to %s\n", path)
	return nil
}

type CompareCmd struct {
	Before string `help:"Baseline label." default:"before"`
	After  string `help:"Protected label." default:"after"`
}

func (c *CompareCmd) Run(cli *CLI) error {
	before, err := loadResult(cli.ResultsDir, c.Before)
	if err != nil {
		return fmt.Errorf("missing %q results, run it first: %w", c.Before, err)
	}
	after, err := loadResult(cli.ResultsDir, c.After)
	if err != nil {
		return fmt.Errorf("missing %q results, run it first: %w", c.After, err)
	}
	printComparison(os.Stdout, before, after)
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("loadtest"),
		kong.Description("Login flood generator for exercising the request gate."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli))
}
