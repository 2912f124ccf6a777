/*
	Copyright 2023 Markus Papenbrock
*/

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	migrateCmd "github.com/mpapenbr/f1-race-predictor/pkg/cmd/migrate"
	serverCmd "github.com/mpapenbr/f1-race-predictor/pkg/cmd/server"
	"github.com/mpapenbr/f1-race-predictor/pkg/config"
	"github.com/mpapenbr/f1-race-predictor/version"
)

const (
	envPrefix      = "FRP"
	configBaseName = ".frp"
)

var cfgFile string

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frp",
		Short: "Backend for the F1 race predictor",
		Long: `frp manages starting grids per browser session and forwards them
to the prediction server. Win probabilities are normalized locally.

Every flag may also be given as environment variable (prefix FRP_, dashes
replaced by underscores) or in the config file.`,
		Version:      version.FullVersion,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate("frp {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default is $HOME/%s.yml)", configBaseName))
	cmd.PersistentFlags().StringVar(&config.DB, "db",
		"postgresql://DB_USERNAME:DB_USER_PASSWORD@DB_HOST:5432/frp",
		"Connection string for the database")
	cmd.PersistentFlags().StringVar(&config.WaitForServices,
		"wait-for-services",
		"15s",
		"Duration to wait for other services to be ready")

	cmd.AddCommand(migrateCmd.NewMigrateCmd())
	cmd.AddCommand(serverCmd.NewServerCmd())
	return cmd
}

// Execute is called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

// initConfig reads the config file and environment variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(configBaseName)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
	bindAll(rootCmd, viper.GetViper())
}

func bindAll(cmd *cobra.Command, v *viper.Viper) {
	bindFlags(cmd, v)
	for _, sub := range cmd.Commands() {
		bindAll(sub, v)
	}
}

// bindFlags applies config file and environment values to flags not set on
// the command line. --session-store is looked up as FRP_SESSION_STORE.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if strings.Contains(f.Name, "-") {
			envName := envPrefix + "_" +
				strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name, envName); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v\n", f.Name, err)
			}
		}
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		val := fmt.Sprintf("%v", v.Get(f.Name))
		if f.Value.Type() == "stringSlice" {
			val = strings.Join(v.GetStringSlice(f.Name), ",")
		}
		if err := cmd.Flags().Set(f.Name, val); err != nil {
			fmt.Fprintf(os.Stderr, "Could not set flag value for %s: %v\n", f.Name, err)
		}
	})
}
