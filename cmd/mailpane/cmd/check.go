package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured account connects",
	Long: `Connect to the configured IMAP server with the stored credentials and
report the message count of the source mailbox.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openClient()
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		if err := client.Connect(cmd.Context()); err != nil {
			return fmt.Errorf("connect: %w", err)
		}

		count, err := client.MessageCount(cmd.Context())
		if err != nil {
			return fmt.Errorf("message count: %w", err)
		}

		imapCfg := &cfg.IMAP.Config
		fmt.Printf("Connected to %s as %s\n", imapCfg.Addr(), imapCfg.Username)
		fmt.Printf("%s: %d messages\n", imapCfg.SourceMailbox(), count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
