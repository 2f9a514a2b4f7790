package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/pranavmangal/otpfill/config"
	"github.com/pranavmangal/otpfill/gmail"
)

var gmailCmd = &cli.Command{
	Name:  "gmail",
	Usage: "Manage the Gmail message source",
	Commands: []*cli.Command{
		{
			Name:  "login",
			Usage: "Authorise access to Gmail and store the token in the system keychain",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				conf, err := config.Load()
				if err != nil {
					return err
				}

				if err := gmail.Login(ctx, conf.CredentialsFile); err != nil {
					return err
				}

				fmt.Println("Successfully saved credential.")
				return nil
			},
		},
		{
			Name:  "logout",
			Usage: "Remove the stored Gmail token",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return gmail.Logout()
			},
		},
		{
			Name:      "credentials",
			Usage:     "Set the OAuth client secret file, or print it when no path is given",
			ArgsUsage: "[path]",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "clear",
					Usage: "Forget the configured file",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				if cmd.Bool("clear") {
					return config.DeleteCredentialsFile()
				}

				if cmd.Args().Len() == 0 {
					path, err := config.ReadCredentialsFile()
					if err != nil {
						return err
					}

					if path == "" {
						fmt.Println("No credentials file configured.")
					} else {
						fmt.Println(path)
					}

					return nil
				}

				path, err := filepath.Abs(cmd.Args().First())
				if err != nil {
					return err
				}

				return config.WriteCredentialsFile(path)
			},
		},
	},
}
