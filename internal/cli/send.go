package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sufield/courier/internal/adapters/secondary/material"
	"github.com/sufield/courier/pkg/courier"
)

func newSendCmd(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "send ADDRESS [CONTENT]",
		Short: "Deliver one payload to a receiver",
		Long: `Deliver one payload to a receiver and wait for its answer.

The payload is CONTENT, or standard input when CONTENT is omitted or "-".
The command succeeds only when the receiver answers 200.`,
		Example: `  courier send https://localhost:7847/#tok '{"a":1}' --cert client.pem --key client-key.pem --ca ca.pem
  echo hello | courier send https://inbox.example:7847/`,
		Args: usageArgs(cobra.RangeArgs(1, 2)),
	}

	flags := cmd.Flags()
	bindings := addTLSFlags(flags, "send.tls")
	flags.String("server-name", "", "name to verify the receiver certificate against")
	flags.Bool("insecure-skip-verify", false, "do not verify the receiver certificate")
	flags.DurationVar(&timeout, "timeout", 0, "give up after this long (0 waits indefinitely)")
	bindings["send.server_name"] = "server-name"
	bindings["send.insecure_skip_verify"] = "insecure-skip-verify"

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := a.setup(cmd, bindings); err != nil {
			return err
		}

		content, err := readContent(cmd, args)
		if err != nil {
			return err
		}

		preset, err := a.cfg.Send.ClientMaterial(material.NewLoader(a.logger))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}

		ctx := cmd.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		sender := courier.NewSender(
			courier.WithLogger(a.logger),
			courier.WithPresetMaterial(preset),
		)
		if err := sender.Send(ctx, courier.SendRequest{Address: args[0], Content: content}); err != nil {
			return classifySend(err)
		}
		return nil
	}
	return cmd
}

func readContent(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 2 && args[1] != "-" {
		return args[1], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("%w: failed to read payload from stdin: %v", ErrUsage, err)
	}
	return string(data), nil
}
