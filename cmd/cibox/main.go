package main

import (
	"os"
	"path"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	cibox "github.com/infra-whizz/cibox"
	cibox_lib "github.com/infra-whizz/cibox/lib"
)

var appname string
var capp *cibox.ContainerApp

func init() {
	appname = path.Base(os.Args[0])

	// setup logger
	if cibox_lib.Any(os.Args, "--verbose", "-v") {
		wzlib_logger.GetCurrentLogger().SetLevel(logrus.TraceLevel)
	} else {
		wzlib_logger.GetCurrentLogger().SetLevel(logrus.InfoLevel)
	}

	capp = cibox.NewContainerApp()
}

func selectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "distro",
			Aliases: []string{"d"},
			Usage:   "Distribution name (Ubuntu, Debian, Fedora, OSX, Windows)",
		},
		&cli.StringFlag{
			Name:    "release",
			Aliases: []string{"r"},
			Usage:   "Distribution release, e.g. trusty",
		},
		&cli.StringFlag{
			Name:    "arch",
			Aliases: []string{"a"},
			Usage:   "Architecture of the container. Defaults to the host machine",
		},
		&cli.BoolFlag{
			Name:    "local",
			Aliases: []string{"l"},
			Usage:   "Install packages into a local prefix instead of the rootfs",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Show debugging log",
		},
	}
}

func runUse(ctx *cli.Context) error {
	code, err := capp.RunUse(ctx)
	if err != nil {
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

func main() {
	app := &cli.App{
		Version: "0.1 Alpha",
		Name:    appname,
		Usage:   "Non-root CI containers via proot and qemu",
	}

	app.Commands = []*cli.Command{
		{
			Name:      "create",
			Usage:     "Create a container in a directory",
			ArgsUsage: "DIR",
			Action:    capp.RunCreate,
			Flags: append(selectionFlags(),
				&cli.StringFlag{
					Name:  "repositories",
					Usage: "File listing repositories to add before installing packages",
				},
				&cli.StringFlag{
					Name:  "packages",
					Usage: "File listing packages to install into the container",
				},
			),
		},
		{
			Name:      "use",
			Usage:     "Run a command inside a created container",
			ArgsUsage: "DIR CMD [ARG...]",
			Action:    runUse,
			Flags: append(selectionFlags(),
				&cli.BoolFlag{
					Name:    "show-output",
					Aliases: []string{"s"},
					Usage:   "Mirror the command output while it runs",
				},
			),
		},
		{
			Name:      "root",
			Usage:     "Print the root filesystem directory of a container",
			ArgsUsage: "DIR",
			Action:    capp.RunRoot,
			Flags:     selectionFlags(),
		},
		{
			Name:   "list",
			Usage:  "List configurations available on this host",
			Action: capp.RunEnumerate,
		},
	}

	if err := app.Run(os.Args); err != nil {
		wzlib_logger.GetCurrentLogger().Errorf("General error: %s", err.Error())
		os.Exit(1)
	}
}
