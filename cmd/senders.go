package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/pranavmangal/otpfill/config"
)

var sendersCmd = &cli.Command{
	Name:  "senders",
	Usage: "Manage the senders whose messages are accepted (all senders when empty)",
	Commands: []*cli.Command{
		{
			Name:      "add",
			Usage:     "Accept messages from a sender",
			ArgsUsage: "<sender>",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				if cmd.Args().Len() != 1 {
					return cli.Exit("add takes exactly one sender", 2)
				}

				return config.AddSender(cmd.Args().First())
			},
		},
		{
			Name:  "list",
			Usage: "List accepted senders",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				senders, err := config.ListSenders()
				if err != nil {
					return err
				}

				if len(senders) == 0 {
					fmt.Println("No senders configured; messages from any sender are accepted.")
					return nil
				}

				for _, s := range senders {
					fmt.Println(s)
				}

				return nil
			},
		},
		{
			Name:      "remove",
			Usage:     "Stop accepting messages from a sender",
			ArgsUsage: "<sender>",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				if cmd.Args().Len() != 1 {
					return cli.Exit("remove takes exactly one sender", 2)
				}

				return config.RemoveSender(cmd.Args().First())
			},
		},
		{
			Name:  "reset",
			Usage: "Remove all senders",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return config.ResetSenders()
			},
		},
	},
}
