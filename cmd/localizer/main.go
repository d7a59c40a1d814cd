// Package main is the localizer command line tool.
package main

import (
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"go.viam.com/localizer/logging"
)

const (
	// Flags.
	flagDebug          = "debug"
	flagConfig         = "config"
	flagMetricsAddress = "metrics-address"
	flagReportInterval = "report-interval"
	flagAddress        = "address"
	flagURI            = "uri"
	flagRate           = "rate"
	flagCount          = "count"
	flagRadius         = "radius"
)

func main() {
	var logger logging.Logger

	app := &cli.App{
		Name:  "localizer",
		Usage: "track live poses published by a motion capture system",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("localizer")
			} else {
				logger = logging.NewLogger("localizer")
			}
			logging.ReplaceGlobal(logger)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "track the objects listed in a config file and log their poses",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagConfig,
						Aliases:  []string{"c"},
						Usage:    "load configuration from `FILE`",
						Required: true,
					},
					&cli.StringFlag{
						Name:  flagMetricsAddress,
						Usage: "serve prometheus metrics on `ADDRESS`, disabled when empty",
					},
					&cli.DurationFlag{
						Name:  flagReportInterval,
						Usage: "how often to log every tracked pose",
						Value: time.Second,
					},
				},
				Action: func(c *cli.Context) error {
					return runCommand(c, logger)
				},
			},
			{
				Name:  "publish",
				Usage: "publish synthetic poses moving around a circle",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagAddress,
						Usage:    "UDP `ADDRESS` of a running localizer",
						Required: true,
					},
					&cli.StringFlag{
						Name:     flagURI,
						Usage:    "topic uri to publish on, e.g. vicon://10.0.0.1/car1",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  flagRate,
						Usage: "samples per second",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  flagCount,
						Usage: "number of samples to publish, forever when 0",
					},
					&cli.Float64Flag{
						Name:  flagRadius,
						Usage: "radius of the circle in meters",
						Value: 1,
					},
				},
				Action: func(c *cli.Context) error {
					return publishCommand(c, logger)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
