// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/Fantom-foundation/Turandot/go/constants"
	"github.com/Fantom-foundation/Turandot/go/executor/calaf"
	"github.com/Fantom-foundation/Turandot/go/interpreter/scripted"
	"github.com/Fantom-foundation/Turandot/go/programs"
	"github.com/Fantom-foundation/Turandot/go/turandot"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var RunCmd = cli.Command{
	Action:    doRun,
	Name:      "run",
	Usage:     "Replay scenario files and check their expectations",
	ArgsUsage: "<scenario.json> ...",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "jobs",
			Usage: "number of scenario files replayed simultaneously",
			Value: runtime.NumCPU(),
		},
		&cli.StringFlag{
			Name:  "interpreter",
			Usage: "the interpreter running the contract programs",
			Value: "scripted",
		},
		&cli.StringFlag{
			Name:  "constants",
			Usage: "replay with the cost tables of the given constants document",
		},
	},
}

func doRun(context *cli.Context) error {
	files := context.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("no scenario files given")
	}

	newExecutor, err := executorFactory(context)
	if err != nil {
		return err
	}

	jobs := context.Int("jobs")
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	// Scenario files are independent and replayed concurrently; the blocks
	// within one file are replayed in order.
	var violations atomic.Int64
	var group errgroup.Group
	group.SetLimit(jobs)
	for _, file := range files {
		file := file
		group.Go(func() error {
			scenario, err := LoadScenario(file)
			if err != nil {
				return err
			}
			world := scenario.InitialState()
			results, err := scenario.replay(newExecutor(), world)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", scenario.Name, err)
			}
			issues := scenario.checkExpectations(results, world)
			for _, issue := range issues {
				log.Error("expectation violated", "scenario", scenario.Name, "issue", issue)
			}
			violations.Add(int64(len(issues)))
			if len(issues) == 0 {
				log.Info("scenario passed",
					"scenario", scenario.Name,
					"blocks", len(scenario.Blocks),
					"transactions", len(results))
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	if failed := violations.Load(); failed > 0 {
		return fmt.Errorf("%d expectations violated", failed)
	}
	return nil
}

// executorFactory builds the executor constructor selected by the command
// line: the calaf executor on the chosen interpreter, optionally running
// against an overriding constants document. Every call of the returned
// constructor creates an executor with its own program cache.
func executorFactory(context *cli.Context) (func() turandot.Executor, error) {
	interpreter, err := turandot.NewInterpreter(context.String("interpreter"))
	if err != nil {
		return nil, err
	}
	var tables *constants.Constants
	if path := context.String("constants"); path != "" {
		tables, err = constants.LoadDocument(path)
		if err != nil {
			return nil, err
		}
		log.Info("using constants document", "path", path)
	}
	return func() turandot.Executor {
		cache := programs.NewCache(scripted.NewCompiler())
		if tables != nil {
			return calaf.NewExecutorWithConstants(interpreter, cache, tables)
		}
		return calaf.NewExecutor(interpreter, cache)
	}, nil
}
