package protocol

import (
	"fmt"

	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils"
	"github.com/datazip-inc/olake-intercom/utils/logger"
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear-state",
	Short: "Olake clear command to drop the bookmarks of the selected streams",
	Long:  `Removes the bookmarks of the streams selected in --streams from --state; all bookmarks are dropped when --streams is not passed`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if statePath == "" {
			return fmt.Errorf("--state not passed")
		}

		state = types.NewState()
		if err := utils.UnmarshalFile(statePath, state, false); err != nil {
			return err
		}

		catalog = &types.Catalog{}
		if streamsPath != "" {
			return utils.UnmarshalFile(streamsPath, catalog, true)
		}
		return nil
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		streams := make([]string, 0, len(catalog.SelectedStreams))
		for _, metadata := range catalog.SelectedStreams {
			streams = append(streams, metadata.StreamName)
		}

		// Setup state for connector
		connector.SetupState(state)
		newState, err := connector.ClearState(streams...)
		if err != nil {
			return fmt.Errorf("error clearing state: %w", err)
		}

		if len(streams) == 0 {
			logger.Infof("State of all streams cleared successfully.")
		} else {
			logger.Infof("State of streams %v cleared successfully.", streams)
		}

		logger.LogState(newState)
		printMessage(types.Message{Type: types.StateMessage, State: newState})
		return nil
	},
}
