package constants

// State versions describe the persisted bookmark layout.
//
// Version History:
//   - Version 0: Legacy flat format
//     * {"bookmarks": {"<stream>": "<value>"}}
//     * the cursor field name is implied by the stream
//
//   - Version 1: Current Version
//     * {"bookmarks": {"<stream>": {"<cursor_field>": "<value>"}}, "currently_syncing": "<stream>"}
//     * parent streams may carry a last_processed {"id", "cursor"} marker next to the cursor
//
// Version 0 states are upgraded in memory on load and always written back as the latest version.
const (
	LegacyStateVersion = 0
	LatestStateVersion = 1
)
