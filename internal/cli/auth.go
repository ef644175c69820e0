package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/AbazaSeif/cloudsync/internal/auth"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage remote storage credentials",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize access to the remote storage",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogin,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored credential state",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return fmt.Errorf("clientId and clientSecret must be configured before login")
	}

	oauthCfg := auth.OAuthConfig(cfg.ClientID, cfg.ClientSecret)
	url := oauthCfg.AuthCodeURL("state", oauth2.AccessTypeOffline)

	fmt.Println("Open the following URL in your browser and authorize access:")
	fmt.Println()
	fmt.Println("  " + url)
	fmt.Println()
	fmt.Print("Paste the authorization code: ")

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)

	if _, err := auth.Exchange(context.Background(), oauthCfg, cfg.Profile, code); err != nil {
		return err
	}
	fmt.Printf("Token stored for profile %q.\n", cfg.Profile)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	token, err := auth.LoadToken(cfg.Profile)
	if err != nil {
		return err
	}
	state := "expired (will refresh on next use)"
	if token.Valid() {
		state = "valid"
	}
	fmt.Printf("Profile %q: token %s\n", cfg.Profile, state)
	return nil
}
