package migrate

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/f1-race-predictor/log"
	"github.com/mpapenbr/f1-race-predictor/pkg/config"
	dbmigrate "github.com/mpapenbr/f1-race-predictor/pkg/db/migrate"
	"github.com/mpapenbr/f1-race-predictor/pkg/utils"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration()
		},
	}
	return cmd
}

func startMigration() error {
	// wait for database
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	if postgresAddr := utils.ExtractFromDBURL(config.DB); postgresAddr != "" {
		if err = utils.WaitForTCP(postgresAddr, timeout); err != nil {
			log.Fatal("database not ready", log.ErrorField(err))
		}
	}

	log.Info("Applying embedded migrations")
	if err := dbmigrate.MigrateDb(config.DB); err != nil {
		log.Error("migration failed", log.ErrorField(err))
		return err
	}
	log.Info("Database is up to date")
	return nil
}
