package cli

import (
	"github.com/urfave/cli/v2"
)

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "Configuration file path",
	Value:   "_local.hcl",
	EnvVars: []string{"BIZSITE_CONFIG"},
}

// NewApp створює новий CLI додаток
func NewApp() *cli.App {
	app := &cli.App{
		Commands: []*cli.Command{
			{
				Name:  "configure",
				Usage: "Generate configuration from template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "template",
						Aliases: []string{"t"},
						Usage:   "Path to HCL template file (built-in template when empty)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output configuration file path",
						Value:   "_local.hcl",
					},
					&cli.StringFlag{
						Name:    "version",
						Aliases: []string{"v"},
						Usage:   "Build version",
						Value:   "dev",
					},
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "Configuration mode (local, staging, production)",
						Value:   "local",
					},
				},
				Action: configureAction,
			},
			{
				Name:   "server",
				Usage:  "Start the API server",
				Flags:  []cli.Flag{configFlag},
				Action: serverAction,
			},
			{
				Name:  "migrate",
				Usage: "Apply database migrations",
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:  "down",
						Usage: "Roll back the latest migration instead",
					},
				},
				Action: migrateAction,
			},
			{
				Name:  "create-admin",
				Usage: "Create a local user with the admin role",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Admin username",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Admin password",
						EnvVars: []string{"ADMIN_PASSWORD"},
					},
				},
				Action: createAdminAction,
			},
			{
				Name:   "version",
				Usage:  "Show version information",
				Action: versionAction,
			},
		},
	}

	return app
}
