package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	porto "github.com/werat/porto"
)

// stopGraceFlag mirrors idFlag's role in nsinit's command set: a single
// flag definition shared by every subcommand that needs it.
var stopGraceFlag = &cli.DurationFlag{
	Name:  "grace",
	Value: 10 * time.Second,
	Usage: "time to wait for SIGTERM before escalating to SIGKILL",
}

func containerCommands(holder *porto.Holder) []*cli.Command {
	return []*cli.Command{
		{
			Name:      "create",
			Usage:     "create a new container",
			ArgsUsage: "<name>",
			Action: func(c *cli.Context) error {
				name, err := requireArg(c)
				if err != nil {
					return err
				}
				_, err = holder.Create(name)
				return err
			},
		},
		{
			Name:      "destroy",
			Usage:     "stop and remove a container",
			ArgsUsage: "<name>",
			Flags:     []cli.Flag{stopGraceFlag},
			Action: func(c *cli.Context) error {
				name, err := requireArg(c)
				if err != nil {
					return err
				}
				return holder.Destroy(c.Context, name, c.Duration("grace"))
			},
		},
		{
			Name:  "list",
			Usage: "list known containers",
			Action: func(c *cli.Context) error {
				for _, name := range holder.List() {
					fmt.Println(name)
				}
				return nil
			},
		},
		{
			Name:      "start",
			Usage:     "start a container",
			ArgsUsage: "<name>",
			Action: func(c *cli.Context) error {
				ct, err := findArg(holder, c)
				if err != nil {
					return err
				}
				return ct.Start(c.Context)
			},
		},
		{
			Name:      "stop",
			Usage:     "stop a container",
			ArgsUsage: "<name>",
			Flags:     []cli.Flag{stopGraceFlag},
			Action: func(c *cli.Context) error {
				ct, err := findArg(holder, c)
				if err != nil {
					return err
				}
				return ct.Stop(c.Context, c.Duration("grace"))
			},
		},
		{
			Name:      "pause",
			Usage:     "freeze a container's process tree",
			ArgsUsage: "<name>",
			Action: func(c *cli.Context) error {
				ct, err := findArg(holder, c)
				if err != nil {
					return err
				}
				return ct.Pause()
			},
		},
		{
			Name:      "resume",
			Usage:     "thaw a paused container",
			ArgsUsage: "<name>",
			Action: func(c *cli.Context) error {
				ct, err := findArg(holder, c)
				if err != nil {
					return err
				}
				return ct.Resume()
			},
		},
		{
			Name:      "get",
			Usage:     "read a container property",
			ArgsUsage: "<name> <property>",
			Action: func(c *cli.Context) error {
				ct, err := findArg(holder, c)
				if err != nil {
					return err
				}
				v, err := ct.GetProperty(c.Args().Get(1))
				if err != nil {
					return err
				}
				fmt.Println(v)
				return nil
			},
		},
		{
			Name:      "set",
			Usage:     "write a container property",
			ArgsUsage: "<name> <property> <value>",
			Action: func(c *cli.Context) error {
				ct, err := findArg(holder, c)
				if err != nil {
					return err
				}
				return ct.SetProperty(c.Args().Get(1), c.Args().Get(2))
			},
		},
		{
			Name:      "data",
			Usage:     "read a container's derived data",
			ArgsUsage: "<name> <key>",
			Action: func(c *cli.Context) error {
				ct, err := findArg(holder, c)
				if err != nil {
					return err
				}
				v, err := ct.GetData(c.Args().Get(1))
				if err != nil {
					return err
				}
				fmt.Println(v)
				return nil
			},
		},
	}
}

func requireArg(c *cli.Context) (string, error) {
	name := c.Args().First()
	if name == "" {
		return "", porto.NewError(porto.KindInvalidValue, 0, "missing <name> argument")
	}
	return name, nil
}

func findArg(holder *porto.Holder, c *cli.Context) (*porto.Container, error) {
	name, err := requireArg(c)
	if err != nil {
		return nil, err
	}
	return holder.Find(name)
}
