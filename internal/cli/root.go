// Package cli implements football-token, the out-of-band credential
// provisioning tool. It shares the server's database configuration.
package cli

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/footballdb/football-api/internal/config"
	"github.com/footballdb/football-api/internal/store"
)

const generatedTokenBytes = 32

var randomToken = func() (string, error) {
	buf := make([]byte, generatedTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

type options struct {
	driver  string
	dsn     string
	output  string
	migrate bool
}

type session struct {
	db     *sql.DB
	tokens store.TokenAdmin
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	sess := &session{}

	rootCmd := &cobra.Command{
		Use:   "football-token",
		Short: "Provision API tokens for football-api",
		Long: `football-token adds, lists and revokes the tokens football-api accepts
in the Authorization header. Database settings default to the server's
FOOTBALL_API_DB_DRIVER and FOOTBALL_API_DB_DSN.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.driver, "driver", "", "Database driver: postgres, sqlite (env: FOOTBALL_API_DB_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "Database DSN (env: FOOTBALL_API_DB_DSN)")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "Output format: text, json")
	rootCmd.PersistentFlags().BoolVar(&opts.migrate, "migrate", true, "Apply schema migrations before running")

	rootCmd.AddCommand(withSession(newAddCmd(sess, opts), sess, opts))
	rootCmd.AddCommand(withSession(newListCmd(sess, opts), sess, opts))
	rootCmd.AddCommand(withSession(newRevokeCmd(sess), sess, opts))

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// withSession opens the database before cmd runs and closes it afterwards.
// Built-in commands such as help and completion never touch the database.
func withSession(cmd *cobra.Command, sess *session, opts *options) *cobra.Command {
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return sess.open(cmd.Context(), opts)
	}
	cmd.PostRunE = func(cmd *cobra.Command, args []string) error {
		return sess.close()
	}
	return cmd
}

func (s *session) open(ctx context.Context, opts *options) error {
	cfg, err := config.Load()
	if err != nil {
		if opts.driver == "" && opts.dsn == "" {
			return err
		}
		cfg = config.Config{}
	}
	if opts.driver != "" {
		cfg.DBDriver = opts.driver
	}
	if opts.dsn != "" {
		cfg.DBDSN = opts.dsn
	}
	if cfg.DBDSN == "" {
		return fmt.Errorf("a database DSN is required")
	}

	dialect, err := store.ParseDialect(cfg.DBDriver)
	if err != nil {
		return err
	}
	db, err := store.Open(ctx, dialect, cfg.DBDSN)
	if err != nil {
		return err
	}
	if opts.migrate {
		if _, err := store.Migrate(ctx, db, dialect); err != nil {
			_ = db.Close()
			return err
		}
	}

	s.db = db
	s.tokens = store.New(db, dialect)
	return nil
}

func (s *session) close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func newAddCmd(sess *session, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add [token]",
		Short: "Provision a token, generating a random one when omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 1 {
				token = args[0]
			} else {
				generated, err := randomToken()
				if err != nil {
					return fmt.Errorf("generating token: %w", err)
				}
				token = generated
			}

			if err := sess.tokens.AddToken(cmd.Context(), token); err != nil {
				if errors.Is(err, store.ErrTokenExists) {
					return fmt.Errorf("token already exists")
				}
				return err
			}

			if opts.output == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"token": token})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func newListCmd(sess *session, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List provisioned tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := sess.tokens.ListTokens(cmd.Context())
			if err != nil {
				return err
			}

			if opts.output == "json" {
				type row struct {
					Token     string    `json:"token"`
					CreatedAt time.Time `json:"createdAt"`
				}
				rows := make([]row, 0, len(tokens))
				for _, tok := range tokens {
					rows = append(rows, row{Token: tok.Token, CreatedAt: tok.CreatedAt})
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(rows)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TOKEN\tCREATED")
			for _, tok := range tokens {
				fmt.Fprintf(w, "%s\t%s\n", tok.Token, tok.CreatedAt.UTC().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func newRevokeCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke a provisioned token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.tokens.RevokeToken(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("token not found")
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "revoked")
			return nil
		},
	}
}
