// Command portod is the process entrypoint described by §4.8: it wires the
// container holder to a urfave/cli command surface, configures logrus,
// loads an optional TOML config file, and runs the background memory
// monitor for the process's lifetime. It also answers to three hidden
// subcommands that are never invoked by a user directly — they are how
// the launcher and helper packages re-exec this same binary to run as the
// intermediate process, the grandchild, and a privileged helper runner.
package main

import (
	"context"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	porto "github.com/werat/porto"
	"github.com/werat/porto/helper"
	"github.com/werat/porto/launcher"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "__porto_intermediate":
			runtime.LockOSThread()
			launcher.IntermediateMain()
			return
		case "__porto_grandchild":
			runtime.LockOSThread()
			launcher.GrandchildMain()
			return
		case "__porto_helper":
			runtime.LockOSThread()
			helper.HelperMain()
			return
		}
	}

	app := newApp()
	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func newApp() *cli.App {
	holder := porto.NewHolder()

	app := &cli.App{
		Name:  "portod",
		Usage: "container runtime daemon",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "enable debug-level logging"},
			&cli.BoolFlag{Name: "log-json", Usage: "log in JSON instead of text"},
			&cli.StringFlag{Name: "config", Value: "/etc/portod.conf", Usage: "path to the TOML config file"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("log-json") {
				logrus.SetFormatter(&logrus.JSONFormatter{})
			} else {
				logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			}

			cfg, err := loadConfig(c.String("config"))
			if err != nil {
				return err
			}
			if c.Bool("debug") || cfg.Log.Verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}

			ctx, cancel := context.WithCancel(context.Background())
			c.Context = ctx
			monitorCancel = cancel

			interval := secondsOrDefault(cfg.Monitor.IntervalSeconds)
			go newMonitor(holder, interval).Run(ctx)
			return nil
		},
		After: func(c *cli.Context) error {
			if monitorCancel != nil {
				monitorCancel()
			}
			return nil
		},
		Commands: commandList(holder),
	}
	return app
}

// monitorCancel stops the background monitor goroutine once the requested
// subcommand has returned. One daemon process runs one app.Run, so a
// package-level variable is no worse than a field App.Run has no slot for.
var monitorCancel context.CancelFunc

func commandList(holder *porto.Holder) []*cli.Command {
	return containerCommands(holder)
}
