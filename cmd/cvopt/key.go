package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
)

func newKeyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored provider API key",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set [api-key]",
			Short: "Validate an API key and store it",
			Long:  "Validates the key with a minimal completion call and stores it only when the provider accepts it. Without an argument the key is read from stdin.",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				key, err := keyArg(cmd, args)
				if err != nil {
					return err
				}
				ctx, s, err := openSession(cmd, opts)
				if err != nil {
					return err
				}
				defer func() { _ = s.Close() }()

				if err := s.service.SaveCredential(ctx, key); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "API key validated and saved.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate [api-key]",
			Short: "Check an API key, or the stored one, without saving",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, s, err := openSession(cmd, opts)
				if err != nil {
					return err
				}
				defer func() { _ = s.Close() }()

				key := ""
				if len(args) == 1 {
					key = args[0]
				} else if key, err = s.service.StoredCredential(ctx); err != nil {
					if errors.Is(err, domain.ErrNotFound) {
						return fmt.Errorf("%w: no API key stored", domain.ErrCredential)
					}
					return err
				}
				if err := s.service.Optimizer.ValidateCredential(ctx, key); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "API key is valid.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Forget the stored API key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, s, err := openSession(cmd, opts)
				if err != nil {
					return err
				}
				defer func() { _ = s.Close() }()

				if err := s.service.ClearCredential(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "API key cleared.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the stored API key, masked",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, s, err := openSession(cmd, opts)
				if err != nil {
					return err
				}
				defer func() { _ = s.Close() }()

				key, err := s.service.StoredCredential(ctx)
				if errors.Is(err, domain.ErrNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "No API key stored.")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), maskKey(key))
				return nil
			},
		},
	)
	return cmd
}

func keyArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// maskKey keeps the first and last four characters.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
