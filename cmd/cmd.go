// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config-dir",
		Aliases: []string{"c"},
		Usage:   "Directory containing profile YAML files",
	}
}

// runCommand executes one reconciliation pass over every discovered profile
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the reconciliation pipeline for every profile",
		Flags: []cli.Flag{
			configDirFlag(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report planned changes without writing to Lidarr or Plex",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Action: r.Run,
	}
}

// configCommand manages profile files
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage profile files",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write an example profile to the config directory",
				Flags:  []cli.Flag{configDirFlag()},
				Action: r.ConfigInit,
			},
			{
				Name:   "check",
				Usage:  "Load and validate every discovered profile",
				Flags:  []cli.Flag{configDirFlag()},
				Action: r.ConfigCheck,
			},
		},
	}
}
