package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/seat-scheduler/internal/config"
	"github.com/example/seat-scheduler/internal/infrastructure/crypto"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Generate a CRED_ENC_KEY value (base64)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export CRED_ENC_KEY=%s\n", key)
			return nil
		},
	}
}

func newSealCmd(root *rootOptions) *cobra.Command {
	var value string
	c := &cobra.Command{
		Use:   "seal",
		Short: "Seal a secret with CRED_ENC_KEY for use as PASSWORD or TELEGRAM_TOKEN",
		Long:  "Seal reads the secret from --value, or from stdin (without echo on a terminal), and prints an enc: value.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if cfg.CredEncKey == "" {
				return errors.New("CRED_ENC_KEY is not set; generate one with `seatsched keys`")
			}
			a, err := crypto.NewFromBase64(cfg.CredEncKey)
			if err != nil {
				return err
			}
			if value == "" {
				if value, err = readSecret(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			if value == "" {
				return errors.New("nothing to seal")
			}
			sealed, err := a.Seal(value)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		},
	}
	c.Flags().StringVar(&value, "value", "", "secret to seal (read from stdin when empty)")
	return c
}

func readSecret(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Secret: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
