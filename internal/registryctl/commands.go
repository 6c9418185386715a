package registryctl

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	jwttoken "atelier/internal/jwt_token"
	"atelier/internal/platform/config"
	"atelier/pkg/domain"
)

const (
	keyURL   = "url"
	keyToken = "token"
	keyKey   = "key"
)

// NewRootCommand builds the registryctl command tree. Flags fall back to
// REGISTRYCTL_* environment variables through v.
func NewRootCommand(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "registryctl",
		Short:         "Command-line client for the atelier token registry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String(keyURL, "http://localhost:8080", "registry base URL")
	root.PersistentFlags().String(keyToken, "", "caller bearer token")
	root.PersistentFlags().String(keyKey, "", "shared signing key for issue-token")
	for _, key := range []string{keyURL, keyToken, keyKey} {
		_ = v.BindPFlag(key, root.PersistentFlags().Lookup(key))
	}
	v.SetEnvPrefix("REGISTRYCTL")
	v.AutomaticEnv()

	client := func() *Client {
		return NewClient(v.GetString(keyURL), v.GetString(keyToken))
	}

	root.AddCommand(
		mintCmd(client),
		transferCmd(client),
		approveCmd(client),
		tokenIDCmd("revoke", "Clear the approved operator of a token", func(c *cobra.Command, id domain.TokenID) error {
			return client().RevokeApproval(c.Context(), id)
		}),
		tokenIDCmd("burn", "Destroy a token", func(c *cobra.Command, id domain.TokenID) error {
			return client().Burn(c.Context(), id)
		}),
		tokenIDCmd("freeze", "Permanently freeze a token's metadata", func(c *cobra.Command, id domain.TokenID) error {
			return client().FreezeMetadata(c.Context(), id)
		}),
		updateMetadataCmd(client),
		transferAdminCmd(client),
		pauseCmd(client, "pause", true),
		pauseCmd(client, "unpause", false),
		tokenCmd(client),
		balanceCmd(client),
		tokenByIndexCmd(client),
		statusCmd(client),
		issueTokenCmd(v),
	)
	return root
}

func mintCmd(client func() *Client) *cobra.Command {
	var (
		p         MintParams
		recipient string
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a token owned by the admin",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			addr, err := domain.ParseAddress(recipient)
			if err != nil {
				return fmt.Errorf("--royalty-recipient: %w", err)
			}
			p.RoyaltyRecipient = addr
			id, err := client().Mint(c.Context(), p)
			if err != nil {
				return err
			}
			return printJSON(c.OutOrStdout(), map[string]any{"token_id": id})
		},
	}
	cmd.Flags().StringVar(&p.URI, "uri", "", "metadata URI")
	cmd.Flags().StringVar(&p.Description, "description", "", "metadata description")
	cmd.Flags().StringVar(&p.License, "license", "", "license text")
	cmd.Flags().StringVar(&recipient, "royalty-recipient", "", "royalty recipient address")
	cmd.Flags().Uint32Var(&p.RoyaltyPercentage, "royalty-bps", 0, "royalty in basis points (0-10000)")
	_ = cmd.MarkFlagRequired("royalty-recipient")
	return cmd
}

func transferCmd(client func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <token-id> <recipient>",
		Short: "Transfer a token",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			id, addr, err := parseIDAndAddress(args)
			if err != nil {
				return err
			}
			return client().Transfer(c.Context(), id, addr)
		},
	}
}

func approveCmd(client func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <token-id> <operator>",
		Short: "Approve an operator for a token",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			id, addr, err := parseIDAndAddress(args)
			if err != nil {
				return err
			}
			return client().Approve(c.Context(), id, addr)
		},
	}
}

func tokenIDCmd(use, short string, run func(*cobra.Command, domain.TokenID) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <token-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			id, err := domain.ParseTokenID(args[0])
			if err != nil {
				return err
			}
			return run(c, id)
		},
	}
}

func updateMetadataCmd(client func() *Client) *cobra.Command {
	var uri, description, license string
	cmd := &cobra.Command{
		Use:   "update-metadata <token-id>",
		Short: "Replace a token's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			id, err := domain.ParseTokenID(args[0])
			if err != nil {
				return err
			}
			version, err := client().UpdateMetadata(c.Context(), id, uri, description, license)
			if err != nil {
				return err
			}
			return printJSON(c.OutOrStdout(), map[string]any{"version": version})
		},
	}
	cmd.Flags().StringVar(&uri, "uri", "", "metadata URI")
	cmd.Flags().StringVar(&description, "description", "", "metadata description")
	cmd.Flags().StringVar(&license, "license", "", "license text")
	return cmd
}

func transferAdminCmd(client func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer-admin <new-admin>",
		Short: "Hand the admin role to another address",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			addr, err := domain.ParseAddress(args[0])
			if err != nil {
				return err
			}
			return client().TransferAdmin(c.Context(), addr)
		},
	}
}

func pauseCmd(client func() *Client, use string, paused bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Set the registry pause flag to %t", paused),
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			got, err := client().SetPaused(c.Context(), paused)
			if err != nil {
				return err
			}
			return printJSON(c.OutOrStdout(), map[string]any{"paused": got})
		},
	}
}

func tokenCmd(client func() *Client) *cobra.Command {
	return tokenIDCmd("token", "Show a token", func(c *cobra.Command, id domain.TokenID) error {
		resp, err := client().Token(c.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(c.OutOrStdout(), resp)
	})
}

func balanceCmd(client func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <owner>",
		Short: "Show how many tokens an address owns, and which",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			owner, err := domain.ParseAddress(args[0])
			if err != nil {
				return err
			}
			resp, err := client().Owner(c.Context(), owner)
			if err != nil {
				return err
			}
			return printJSON(c.OutOrStdout(), resp)
		},
	}
}

func tokenByIndexCmd(client func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "token-by-index <owner> <index>",
		Short: "Show the token at a position of an owner's list",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			owner, err := domain.ParseAddress(args[0])
			if err != nil {
				return err
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("index must be an integer: %w", err)
			}
			resp, err := client().TokenByIndex(c.Context(), owner, index)
			if err != nil {
				return err
			}
			return printJSON(c.OutOrStdout(), resp)
		},
	}
}

func statusCmd(client func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the admin, pause flag and last token id",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			resp, err := client().Status(c.Context())
			if err != nil {
				return err
			}
			return printJSON(c.OutOrStdout(), resp)
		},
	}
}

func issueTokenCmd(v *viper.Viper) *cobra.Command {
	var (
		caller   string
		issuer   string
		audience string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Sign a development caller token with the shared key",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			key := v.GetString(keyKey)
			if key == "" {
				return fmt.Errorf("--key or REGISTRYCTL_KEY is required")
			}
			addr, err := domain.ParseAddress(caller)
			if err != nil {
				return fmt.Errorf("--caller: %w", err)
			}
			token, err := jwttoken.NewJWTService(key, issuer, audience).IssueCallerToken(addr, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.OutOrStdout(), token)
			return err
		},
	}
	defaults := authDefaults()
	cmd.Flags().StringVar(&caller, "caller", "", "caller address to sign for")
	cmd.Flags().StringVar(&issuer, "issuer", defaults.Issuer, "token issuer (CALLER_TOKEN_ISSUER)")
	cmd.Flags().StringVar(&audience, "audience", defaults.Audience, "token audience (CALLER_TOKEN_AUDIENCE)")
	cmd.Flags().DurationVar(&ttl, "ttl", defaults.TTL, "token lifetime (CALLER_TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("caller")
	return cmd
}

// authDefaults reads the server's caller token settings so issued tokens
// validate against a server started from the same environment.
func authDefaults() config.AuthConfig {
	cfg, err := env.ParseAs[config.AuthConfig]()
	if err != nil {
		return config.AuthConfig{Issuer: "atelier", Audience: "atelier-registry", TTL: time.Hour}
	}
	return cfg
}

func parseIDAndAddress(args []string) (domain.TokenID, domain.Address, error) {
	id, err := domain.ParseTokenID(args[0])
	if err != nil {
		return 0, domain.Address{}, err
	}
	addr, err := domain.ParseAddress(args[1])
	if err != nil {
		return 0, domain.Address{}, err
	}
	return id, addr, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
