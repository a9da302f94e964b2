package cmd

import (
	"bufio"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	var (
		account string
		code    string
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize read access to a Gmail account",
		Long: `Print the Google consent URL, then exchange the authorization code for a
token stored under the token directory. Paste either the code or the whole
URL the browser was redirected to.

Requires GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gcfg := googleConfig(cfg)
			if cmd.Flags().Changed("account") {
				gcfg.Account = account
			}
			if err := gcfg.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if code == "" {
				fmt.Fprintf(out, "Open this URL in your browser and grant access:\n\n%s\n\n", gcfg.AuthURL(uuid.NewString()))
				fmt.Fprint(out, "Paste the code or the redirect URL: ")
				scanner := bufio.NewScanner(cmd.InOrStdin())
				if !scanner.Scan() {
					if err := scanner.Err(); err != nil {
						return err
					}
					return fmt.Errorf("no authorization code entered")
				}
				code = scanner.Text()
			}

			if _, err := gcfg.Exchange(cmd.Context(), code); err != nil {
				return err
			}
			fmt.Fprintf(out, "Token saved to %s\n", gcfg.TokenFile())
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Name of the stored token")
	cmd.Flags().StringVar(&code, "code", "", "Authorization code or redirect URL (prompted for when empty)")
	return cmd
}
