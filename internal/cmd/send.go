package cmd

import (
	"github.com/Iron-Ham/postoffice/internal/mail"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <address> <message>",
	Short: "Announce a message for an address",
	Long: `Write a mail announcement to the configured output stream.

Nothing is delivered: the address and message are printed as-is,
without validation.`,
	Args: cobra.ExactArgs(2),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	if err := mail.NewSender(rt.mailOut).Send(args[0], args[1]); err != nil {
		rt.logFailure("send failed", err)
		return err
	}
	return nil
}
