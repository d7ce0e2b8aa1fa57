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

package destination

import (
	"context"

	"github.com/datazip-inc/olake-intercom/types"
)

type Config interface {
	Validate() error
}

type Writer interface {
	GetConfigRef() Config
	Spec() any
	Type() string
	// Check validates the config and the reachability of the destination
	//
	// Note: Check is called on a fresh instance, before any Setup
	Check(ctx context.Context) error
	// Setup dedicates the writer to one stream and announces its schema
	Setup(ctx context.Context, stream *types.ConfiguredStream) error
	// Write is called with batches of records of the stream set up
	Write(ctx context.Context, records []types.RawRecord) error
	// ActivateVersion marks version as the complete record set of the stream
	ActivateVersion(ctx context.Context, version int64) error
	// Flush makes every record written so far durable. It is called before
	// each state checkpoint.
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// StateWriter is implemented by writers that carry the state within their own output
type StateWriter interface {
	WriteState(ctx context.Context, state *types.State) error
}
