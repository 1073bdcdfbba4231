// Command petadopt is a terminal client for the adoption portal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pet-adoption-portal/internal/api"
	"pet-adoption-portal/internal/config"
	"pet-adoption-portal/internal/obs"
	"pet-adoption-portal/internal/portal"
	"pet-adoption-portal/internal/session"
)

// cliSession is the key the token file is stored under.
const cliSession = "cli"

var (
	cfgPath string
	verbose bool
	asJSON  bool

	logger   *zap.Logger
	svc      *portal.Service
	sessions *session.Manager
)

var rootCmd = &cobra.Command{
	Use:   "petadopt",
	Short: "Browse pets and manage adoption requests from the terminal",
	Long: `petadopt talks to the adoption API the same way the web portal does.

Sign in once with "petadopt login"; the token is kept in TOKEN_FILE
(default ~/.petadopt/token) until it expires or you log out.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger, err = obs.NewLogger(level, "console")
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		client, err := api.New(api.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout, Logger: logger})
		if err != nil {
			return err
		}
		sessions = session.NewManager(session.NewFileStore(cfg.TokenFile), cfg.SessionTTL, logger)
		svc = portal.New(client, sessions, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "YAML config file (default $PORTAL_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log API calls")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print raw JSON")

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (default $PETADOPT_PASSWORD)")
	_ = loginCmd.MarkFlagRequired("email")

	requestsCmd.Flags().BoolVar(&reqManage, "manage", false, "show every request you manage (shelter/admin)")
	requestsCmd.Flags().StringVar(&reqStatus, "status", "", "PENDING, APPROVED, REJECTED, COMPLETED or ALL")
	requestsCmd.Flags().StringVar(&reqPet, "pet", "", "pet id contains")
	requestsCmd.Flags().StringVar(&reqUser, "user", "", "user id contains")
	requestsCmd.Flags().StringVar(&reqFrom, "from", "", "created on or after (YYYY-MM-DD)")
	requestsCmd.Flags().StringVar(&reqTo, "to", "", "created on or before (YYYY-MM-DD)")

	bookCmd.Flags().Int64Var(&bookShelter, "shelter", 0, "shelter id")
	bookCmd.Flags().StringVar(&bookVisitor, "visitor", "", "visitor name")
	bookCmd.Flags().IntVar(&bookVisitors, "visitors", 1, "number of visitors")
	bookCmd.Flags().StringVar(&bookAt, "at", "", "visit time, e.g. 2026-10-20T14:00:00Z")
	_ = bookCmd.MarkFlagRequired("shelter")
	_ = bookCmd.MarkFlagRequired("visitor")
	_ = bookCmd.MarkFlagRequired("at")

	rootCmd.AddCommand(
		loginCmd, logoutCmd, whoamiCmd,
		petsCmd, petCmd, adoptCmd,
		requestsCmd, bookCmd, decideCmd, visitCmd,
		reportsCmd, profileCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", portal.NoticeFor(err, err.Error()).Message)
		os.Exit(1)
	}
}
