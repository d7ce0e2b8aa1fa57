package main

import (
	"github.com/datazip-inc/olake-intercom"
	driver "github.com/datazip-inc/olake-intercom/drivers/intercom/internal"
)

func main() {
	driver := &driver.Intercom{}
	defer driver.Close()
	olake.RegisterDriver(driver)
}
