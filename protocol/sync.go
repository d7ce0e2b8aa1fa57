package protocol

import (
	"fmt"
	"os"
	"time"

	"github.com/datazip-inc/olake-intercom/destination"
	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils"
	"github.com/datazip-inc/olake-intercom/utils/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
)

// syncCmd represents the sync command which replicates the selected streams
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Olake Intercom sync command",
	Long:  `Sync command fetches the selected streams from Intercom, writes them to the destination and checkpoints the state`,
	Example: `
// Base command:
olake-intercom sync --config path/to/config --destination path/to/destination/config --catalog path/to/catalog

// With State:
olake-intercom sync --config path/to/config --destination path/to/destination/config --catalog path/to/catalog --state /path/to/state
`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if configPath == "not-set" {
			return fmt.Errorf("--config not passed")
		} else if destinationConfigPath == "not-set" {
			return fmt.Errorf("--destination not passed")
		} else if streamsPath == "" {
			return fmt.Errorf("--catalog not passed")
		}

		// unmarshal source config
		if err := utils.UnmarshalFile(configPath, connector.GetConfigRef(), false); err != nil {
			return err
		}

		// unmarshal destination config
		destinationConfig = &types.WriterConfig{}
		if err := utils.UnmarshalFile(destinationConfigPath, destinationConfig, true); err != nil {
			return err
		}

		catalog = &types.Catalog{}
		if err := utils.UnmarshalFile(streamsPath, catalog, true); err != nil {
			return err
		}

		// default state
		state = types.NewState()
		if statePath != "" {
			if _, err := os.Stat(statePath); err == nil {
				if err := utils.UnmarshalFile(statePath, state, false); err != nil {
					return err
				}
			} else {
				logger.Warnf("state file[%s] not found, starting from start_date", statePath)
			}
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := connector.Setup(cmd.Context()); err != nil {
			return err
		}

		if batchSize > 0 {
			destinationConfig.BatchSize = batchSize
		}
		pool, err := destination.NewWriterPool(cmd.Context(), destinationConfig)
		if err != nil {
			return err
		}

		connector.SetupState(state)

		start := time.Now()
		readErr := connector.Read(cmd.Context(), pool, catalog)
		closeErr := pool.Close(cmd.Context())
		logger.Infof("Total records synced: %d in %s", pool.SyncedRecords(), time.Since(start).Round(time.Millisecond))

		if readErr != nil {
			if closeErr != nil {
				readErr = multierror.Append(readErr, closeErr)
			}
			return fmt.Errorf("error occurred while reading records: %w", readErr)
		}
		return closeErr
	},
}
