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
	"bytes"
	"encoding/json"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Fantom-foundation/Turandot/go/state"
	"github.com/Fantom-foundation/Turandot/go/turandot"
	"github.com/dsnet/golib/unitconv"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var BenchCmd = cli.Command{
	Action:    doBench,
	Name:      "bench",
	Usage:     "Re-execute the blocks of a scenario repeatedly and measure throughput",
	ArgsUsage: "<scenario.json>",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "jobs",
			Usage: "number of goroutines re-executing the scenario",
			Value: runtime.NumCPU(),
		},
		&cli.DurationFlag{
			Name:  "duration",
			Usage: "how long to keep re-executing",
			Value: 10 * time.Second,
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
		&cli.BoolFlag{
			Name:  "cold-programs",
			Usage: "compile the programs anew for every pass instead of sharing one cache",
		},
	},
}

func doBench(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("bench expects exactly one scenario file")
	}
	scenario, err := LoadScenario(context.Args().First())
	if err != nil {
		return err
	}

	newExecutor, err := executorFactory(context)
	if err != nil {
		return err
	}

	jobs := context.Int("jobs")
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	cold := context.Bool("cold-programs")
	initial := scenario.InitialState()

	// One reference pass pins the outcome every re-execution must reproduce.
	reference, err := benchPass(scenario, newExecutor(), initial)
	if err != nil {
		return err
	}

	mode := "shared"
	if cold {
		mode = "cold"
	}
	log.Info("benchmarking",
		"scenario", scenario.Name,
		"jobs", jobs,
		"duration", context.Duration("duration"),
		"programs", mode)

	shared := newExecutor()
	var passes, transactions atomic.Int64
	start := time.Now()
	deadline := start.Add(context.Duration("duration"))

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				elapsed := time.Since(start)
				rate := float64(transactions.Load()) / elapsed.Seconds()
				log.Info("re-executing",
					"elapsed", elapsed.Round(time.Second),
					"rate", unitconv.FormatPrefix(rate, unitconv.SI, 1)+"tx/s")
			}
		}
	}()

	var group errgroup.Group
	for i := 0; i < jobs; i++ {
		group.Go(func() error {
			for time.Now().Before(deadline) {
				executor := shared
				if cold {
					executor = newExecutor()
				}
				digest, err := benchPass(scenario, executor, initial)
				if err != nil {
					return err
				}
				if !bytes.Equal(digest, reference) {
					return fmt.Errorf("re-execution diverged from the reference results")
				}
				passes.Add(1)
				transactions.Add(int64(scenario.transactionCount()))
			}
			return nil
		})
	}
	err = group.Wait()
	close(stop)
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	rate := float64(transactions.Load()) / elapsed.Seconds()
	log.Info("benchmark complete",
		"scenario", scenario.Name,
		"passes", passes.Load(),
		"transactions", transactions.Load(),
		"rate", unitconv.FormatPrefix(rate, unitconv.SI, 1)+"tx/s")
	return nil
}

// benchPass replays the scenario on a fresh copy of the initial state and
// digests the externally visible outcome. Every pass over the same scenario
// must produce the same digest, no matter how the executors and their
// program caches are shared between passes.
func benchPass(scenario *Scenario, executor turandot.Executor, initial *state.MemoryState) ([]byte, error) {
	world := initial.Clone()
	results, err := scenario.replay(executor, world)
	if err != nil {
		return nil, err
	}
	if issues := scenario.checkExpectations(results, world); len(issues) > 0 {
		return nil, fmt.Errorf("expectation violated: %s", issues[0])
	}
	return digestResults(results)
}

// resultDigest is the part of an execution result compared between passes:
// the verdict, the charge, and the committed delta.
type resultDigest struct {
	Status string              `json:"status"`
	Reason string              `json:"reason,omitempty"`
	Fee    turandot.Felt       `json:"fee"`
	Gas    turandot.GasVector  `json:"gas"`
	Delta  turandot.StateDelta `json:"delta"`
}

func digestResults(results []turandot.ExecutionResult) ([]byte, error) {
	digests := make([]resultDigest, 0, len(results))
	for _, result := range results {
		digest := resultDigest{
			Status: result.Status.String(),
			Fee:    result.Fee,
			Gas:    result.GasConsumed,
			Delta:  result.Delta,
		}
		switch result.Status {
		case turandot.Rejected:
			digest.Reason = fmt.Sprint(result.RejectReason)
		case turandot.Reverted:
			digest.Reason = result.RevertReason
		}
		digests = append(digests, digest)
	}
	return json.Marshal(digests)
}
