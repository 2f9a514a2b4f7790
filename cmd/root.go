package cmd

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

var rootCmd = &cli.Command{
	Name:   "otpfill",
	Usage:  "Fill and verify one-time passwords from incoming SMS.",
	Action: listen,
	Flags:  listenFlags(),
	Commands: []*cli.Command{
		{
			Name:   "listen",
			Usage:  "Wait for an SMS and fill the OTP form from it",
			Action: listen,
			Flags:  listenFlags(),
		},
		extractCmd,
		verifyCmd,
		sendersCmd,
		gmailCmd,
	},
}

func Execute() {
	if err := rootCmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
