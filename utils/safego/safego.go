package safego

import (
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/datazip-inc/olake-intercom/constants"
	"github.com/datazip-inc/olake-intercom/utils/logger"
	"github.com/spf13/viper"
)

var startTime = time.Now()

// Recovery must be deferred; it logs a recovered panic line by line with its
// stack and, when exit is set, terminates the process with status 1
func Recovery(exit bool) {
	recovered := recover()
	if recovered == nil {
		return
	}

	logger.Errorf("sync[%s] panicked: %v", viper.GetString(constants.SyncID), recovered)
	for _, line := range strings.Split(strings.TrimSpace(string(debug.Stack())), "\n") {
		logger.Error(strings.TrimSpace(line))
	}

	if exit {
		logger.Infof("Time of execution %s", time.Since(startTime).Round(time.Millisecond))
		os.Exit(1)
	}
}
