package olake

import (
	"os"

	_ "github.com/datazip-inc/olake-intercom/destination/parquet" // registering local parquet writer
	_ "github.com/datazip-inc/olake-intercom/destination/stdout"  // registering stdout writer
	"github.com/datazip-inc/olake-intercom/drivers/abstract"
	protocol "github.com/datazip-inc/olake-intercom/protocol"
	"github.com/datazip-inc/olake-intercom/utils/logger"
	"github.com/datazip-inc/olake-intercom/utils/safego"
)

func RegisterDriver(driver abstract.DriverInterface) {
	defer safego.Recovery(true)

	// Execute the root command
	err := protocol.CreateRootCommand(true, driver).Execute()
	if err != nil {
		logger.Fatal(err)
	}

	os.Exit(0)
}
