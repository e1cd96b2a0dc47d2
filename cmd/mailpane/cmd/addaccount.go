package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	imapclient "github.com/mailpane/mailpane/internal/imap"
)

var (
	imapHost     string
	imapPort     int
	imapUsername string
	imapMailbox  string
	imapNoTLS    bool
	imapSTARTTLS bool
)

var addAccountCmd = &cobra.Command{
	Use:   "add-account",
	Short: "Add an IMAP account",
	Long: `Add an IMAP email account using username/password authentication.

By default, connects using implicit TLS (IMAPS, port 993).
Use --starttls for STARTTLS upgrade on port 143.
Use --no-tls for a plain unencrypted connection (not recommended).

You will be prompted to enter your password interactively.

Examples:
  mailpane add-account --host imap.example.com --username user@example.com
  mailpane add-account --host mail.example.com --port 993 --username user@example.com
  mailpane add-account --host mail.example.com --username user@example.com --starttls`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if imapHost == "" {
			return fmt.Errorf("--host is required")
		}
		if imapUsername == "" {
			return fmt.Errorf("--username is required")
		}

		// Build IMAP config
		imapCfg := &imapclient.Config{
			Host:     imapHost,
			Port:     imapPort,
			TLS:      !imapNoTLS && !imapSTARTTLS,
			STARTTLS: imapSTARTTLS,
			Username: imapUsername,
			Mailbox:  imapMailbox,
		}

		// Get password via secure interactive prompt only (never via flag to
		// avoid exposure in shell history and process listings).
		fmt.Printf("Password for %s@%s: ", imapUsername, imapHost)
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password := string(raw)
		if password == "" {
			return fmt.Errorf("password is required")
		}

		// Test connection
		fmt.Printf("Testing connection to %s...\n", imapCfg.Addr())
		client := imapclient.NewClient(imapCfg, password, imapclient.WithLogger(logger))
		err = client.Connect(cmd.Context())
		if err == nil {
			var count int64
			if count, err = client.MessageCount(cmd.Context()); err == nil {
				fmt.Printf("Connected successfully; %s has %d messages\n", imapCfg.SourceMailbox(), count)
			}
		}
		_ = client.Close()
		if err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}

		identifier := imapCfg.Identifier()
		if err := imapclient.SaveCredentials(cfg.CredentialsDir(), identifier, password); err != nil {
			return fmt.Errorf("save credentials: %w", err)
		}

		// Write the config file if this is the first account; otherwise the
		// user edits the existing file by hand.
		configPath := cfg.ConfigFilePath()
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if err := writeConfigFile(configPath, imapCfg); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Printf("\nWrote %s\n", configPath)
		} else {
			fmt.Printf("\nConfig file already exists. To use this account, set in %s:\n\n", configPath)
			fmt.Printf("  [imap]\n  host = %q\n  username = %q\n", imapHost, imapUsername)
		}

		fmt.Printf("\nIMAP account added successfully!\n")
		fmt.Printf("  Identifier: %s\n", identifier)
		fmt.Println()
		fmt.Println("You can now run:")
		fmt.Println("  mailpane")

		return nil
	},
}

// writeConfigFile creates a fresh config file containing only the account
// section. Fails if the file already exists.
func writeConfigFile(path string, imapCfg *imapclient.Config) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	doc := struct {
		IMAP *imapclient.Config `toml:"imap"`
	}{IMAP: imapCfg}
	return toml.NewEncoder(f).Encode(doc)
}

func init() {
	addAccountCmd.Flags().StringVar(&imapHost, "host", "", "IMAP server hostname (required)")
	addAccountCmd.Flags().IntVar(&imapPort, "port", 0, "IMAP server port (default: 993 for TLS, 143 otherwise)")
	addAccountCmd.Flags().StringVar(&imapUsername, "username", "", "IMAP username / email address (required)")
	addAccountCmd.Flags().StringVar(&imapMailbox, "mailbox", "", "mailbox to browse (default: INBOX)")
	addAccountCmd.Flags().BoolVar(&imapNoTLS, "no-tls", false, "Disable TLS (plain connection, not recommended)")
	addAccountCmd.Flags().BoolVar(&imapSTARTTLS, "starttls", false, "Use STARTTLS instead of implicit TLS")
	rootCmd.AddCommand(addAccountCmd)
}
