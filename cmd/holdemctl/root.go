package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/weedbox/holdemtable/config"
	"go.uber.org/zap"
)

// app carries what the persistent pre-run resolved for the subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRootCmd creates the root command for holdemctl. It is called once in main.
func NewRootCmd() *cobra.Command {
	a := &app{
		v:      config.New(),
		logger: zap.NewNop(),
	}

	rootCmd := &cobra.Command{
		Use:           "holdemctl",
		Short:         "Run and operate hold'em tables",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SetOut(cmd.OutOrStdout())
			cmd.SetErr(cmd.ErrOrStderr())

			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg

			logger, err := cfg.NewLogger()
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml)")
	flags.String("log-level", "info", "log level")
	flags.Bool("log-dev", false, "human readable logs")
	flags.String("ledger", config.LedgerMemory, "ledger driver: memory or postgres")
	flags.String("dsn", "", "postgres connection string")

	bind(a.v, rootCmd, map[string]string{
		"log.level":       "log-level",
		"log.development": "log-dev",
		"ledger.driver":   "ledger",
		"ledger.dsn":      "dsn",
	})

	rootCmd.AddCommand(
		newSimulateCmd(a),
		newMigrateCmd(a),
	)

	return rootCmd
}

// bind maps config keys to flags declared on cmd.
func bind(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		flag := cmd.PersistentFlags().Lookup(name)
		if flag == nil {
			flag = cmd.Flags().Lookup(name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			panic(err)
		}
	}
}
