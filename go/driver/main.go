// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// The turandot driver executes scenario files, self-contained descriptions
// of a chain prefix, against the calaf executor. The run command replays
// the blocks of each scenario and checks the expectations stated in the
// file; the bench command re-executes the blocks of one scenario repeatedly
// to measure throughput and to confirm that re-execution is deterministic.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "turandot",
		Usage:     "Turandot scenario driver",
		Copyright: "(c) 2024 Fantom Foundation",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Before: func(context *cli.Context) error {
			level := log.LevelInfo
			if context.Bool("verbose") {
				level = log.LevelDebug
			}
			log.SetDefault(log.NewLogger(
				log.NewTerminalHandlerWithLevel(os.Stderr, level, false)))
			return nil
		},
		Commands: []*cli.Command{
			&RunCmd,
			&BenchCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
