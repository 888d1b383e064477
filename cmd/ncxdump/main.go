// Command ncxdump inspects collection index files.
//
//	ncxdump --root /data/idx info gfs gfs_0.5deg
//	ncxdump --store s3 --bucket archive --prefix idx/ lookup --run 3 --time 2 gfs gfs_0.5deg
//	ncxdump verify gfs gfs_0.5deg
//	ncxdump --format json-indent stale gfs gfs_0.5deg
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func newApp() *cli.App {
	app := &cli.App{
		Name:    "ncxdump",
		Usage:   "Inspect gridded collection index files",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "store", Value: "local", Usage: "Index store backend (local, s3, minio)", EnvVars: []string{"NCX_STORE"}},
			&cli.StringFlag{Name: "root", Value: ".", Usage: "Root directory of the local store", EnvVars: []string{"NCX_ROOT"}},
			&cli.StringFlag{Name: "bucket", Usage: "Bucket of the s3 or minio store", EnvVars: []string{"NCX_BUCKET"}},
			&cli.StringFlag{Name: "prefix", Usage: "Key prefix inside the bucket", EnvVars: []string{"NCX_PREFIX"}},
			&cli.StringFlag{Name: "region", Usage: "AWS region of the s3 store", EnvVars: []string{"AWS_REGION"}},
			&cli.StringFlag{Name: "endpoint", Usage: "Custom endpoint of the s3 or minio store", EnvVars: []string{"NCX_ENDPOINT"}},
			&cli.StringFlag{Name: "access-key", Usage: "Access key of the minio store", EnvVars: []string{"MINIO_ACCESS_KEY"}},
			&cli.StringFlag{Name: "secret-key", Usage: "Secret key of the minio store", EnvVars: []string{"MINIO_SECRET_KEY"}},
			&cli.BoolFlag{Name: "insecure", Usage: "Use plain http for the minio store"},
			&cli.StringFlag{Name: "format", Value: "text", Usage: "Output format (text, go-json, json, json-indent)", EnvVars: []string{"NCX_FORMAT"}},
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "Set log level (debug, info, warn, error)", EnvVars: []string{"LOG_LEVEL"}},
		},
		Commands: []*cli.Command{
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List the collection indexes below a prefix",
				ArgsUsage: "[PREFIX]",
				Action:    listAction,
			},
			{
				Name:      "info",
				Usage:     "Print the header, groups, variables and partitions of an index",
				ArgsUsage: "DIR NAME",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "variables", Aliases: []string{"v"}, Usage: "List every variable"},
				},
				Action: infoAction,
			},
			{
				Name:      "lookup",
				Usage:     "Resolve a coordinate to a record location",
				ArgsUsage: "DIR NAME",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "group", Usage: "Group index"},
					&cli.IntFlag{Name: "variable", Usage: "Variable index within the group"},
					&cli.IntFlag{Name: "run", Usage: "Master run index"},
					&cli.IntFlag{Name: "time", Usage: "Time index"},
					&cli.IntFlag{Name: "level", Usage: "Level index"},
					&cli.IntFlag{Name: "ens", Usage: "Ensemble member index"},
				},
				Action: lookupAction,
			},
			{
				Name:      "verify",
				Usage:     "Open every partition recursively and report unusable ones",
				ArgsUsage: "DIR NAME",
				Action:    verifyAction,
			},
			{
				Name:      "stale",
				Usage:     "List partitions modified after the index was written",
				ArgsUsage: "DIR NAME",
				Action:    staleAction,
			},
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ncxdump:", err)
		os.Exit(1)
	}
}
