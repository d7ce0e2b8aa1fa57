/*
 * Copyright 2025 Olake By Datazip
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package protocol

import (
	"context"
	"fmt"

	"github.com/datazip-inc/olake-intercom/destination"
	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils"
	"github.com/datazip-inc/olake-intercom/utils/logger"
	"github.com/spf13/cobra"
)

// checkCmd verifies either the destination (--destination) or the source (--config).
// The outcome is always reported as a CONNECTION_STATUS message.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "check command",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		switch {
		case destinationConfigPath != "not-set":
			destinationConfig = &types.WriterConfig{}
			return utils.UnmarshalFile(destinationConfigPath, destinationConfig, true)
		case configPath != "not-set":
			return nil
		default:
			return fmt.Errorf("no connector config or destination config provided")
		}
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		status := &types.StatusRow{Status: types.ConnectionSucceed}
		if err := checkConnection(cmd.Context()); err != nil {
			logger.Errorf("connection check failed: %s", err)
			status.Status, status.Message = types.ConnectionFailed, err.Error()
		}

		printMessage(types.Message{Type: types.ConnectionStatusMessage, ConnectionStatus: status})
		return nil
	},
}

func checkConnection(ctx context.Context) error {
	if destinationConfigPath != "not-set" {
		pool, err := destination.NewWriterPool(ctx, destinationConfig)
		if err != nil {
			return err
		}
		return pool.Close(ctx)
	}

	// validation runs in Setup, after environment overrides were applied
	if err := utils.UnmarshalFile(configPath, connector.GetConfigRef(), false); err != nil {
		return err
	}
	if err := connector.Setup(ctx); err != nil {
		return err
	}
	return connector.Check(ctx)
}
