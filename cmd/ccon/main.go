// Command ccon runs a single container process inside a selected set
// of Linux namespaces, as described by a declarative JSON
// configuration.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/wking/ccon/config"
	"github.com/wking/ccon/container"
)

const version = "0.2.0"

// the container half runs before any CLI parsing
func init() {
	container.Init()
}

func main() {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Printf("%s %s\n", c.App.Name, c.App.Version)
	}

	app := cli.NewApp()
	app.Name = "ccon"
	app.Version = version
	app.Usage = "Open Container Specification runtime"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "config.json",
			Usage: "override config.json with an alternate path",
		},
		cli.StringFlag{
			Name:  "config-string, s",
			Usage: "specify config JSON on the command line, overriding --config and its PATH",
		},
		cli.BoolFlag{
			Name:  "verbose, V",
			Usage: "enable debug logging to stderr",
		},
	}
	app.Before = func(context *cli.Context) error {
		logrus.SetOutput(os.Stderr)
		if context.GlobalBool("verbose") {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.ErrorLevel)
		}
		return nil
	}
	app.Action = runContainer

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func runContainer(context *cli.Context) error {
	var (
		cfg *config.Config
		err error
	)
	if s := context.GlobalString("config-string"); s != "" {
		cfg, err = config.LoadString(s)
	} else {
		cfg, err = config.Load(context.GlobalString("config"))
	}
	if err != nil {
		return err
	}

	status, err := container.Run(cfg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if status != 0 {
		return cli.NewExitError("", status)
	}
	return nil
}

func fatal(err error) {
	logrus.Error(err)
	os.Exit(1)
}
