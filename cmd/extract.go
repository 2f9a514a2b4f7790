package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.design/x/clipboard"

	"github.com/pranavmangal/otpfill/otp"
)

var extractCmd = &cli.Command{
	Name:      "extract",
	Usage:     "Print the OTP contained in a message (read from stdin if no text is given)",
	ArgsUsage: "[text]",
	Action:    extract,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output as JSON",
		},
		&cli.BoolFlag{
			Name:  "copy",
			Usage: "Copy the OTP to the clipboard",
		},
	},
}

var verifyCmd = &cli.Command{
	Name:      "verify",
	Usage:     "Check that a code has the length of an OTP",
	ArgsUsage: "<code>",
	Action:    verify,
}

type extractResult struct {
	OTP *string `json:"otp"`
}

func extract(ctx context.Context, cmd *cli.Command) error {
	text := strings.Join(cmd.Args().Slice(), " ")
	if cmd.Args().Len() == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}

		text = string(b)
	}

	code := otp.Extract(text)

	if cmd.Bool("json") {
		res := extractResult{}
		if code != "" {
			res.OTP = &code
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(res); err != nil {
			return err
		}
	} else if code == "" {
		fmt.Println("No OTP found.")
	} else {
		fmt.Println(code)
	}

	if code != "" && cmd.Bool("copy") {
		copyToClipboard(code)
	}

	return nil
}

func verify(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return cli.Exit("verify takes exactly one code", 2)
	}

	result := otp.Verify(cmd.Args().First())
	fmt.Println(result.Message())

	if result != otp.Valid {
		return cli.Exit("", 1)
	}

	return nil
}

func copyToClipboard(code string) {
	err := clipboard.Init()
	if err == nil {
		clipboard.Write(clipboard.FmtText, []byte(code))
	}
}
