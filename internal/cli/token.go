package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"quiz-platform-service/internal/auth"
	"quiz-platform-service/internal/config"
	"quiz-platform-service/internal/domain"
)

// NewTokenCmd signs a development token with the configured secret.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		userID string
		role   string
		name   string
		email  string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development JWT",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			if !domain.Role(role).Valid() {
				return fmt.Errorf("--role must be student or instructor")
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.ValidateSecret(); err != nil {
				return err
			}
			issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
			token, err := issuer.Issue(auth.Identity{UserID: userID, Email: email, Name: name, Role: domain.Role(role)})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleStudent), "student or instructor")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email")
	return cmd
}
