/*
flag Package set up cli flags shared across services

Usage:

	Flags listed in this package are shared across boundaries and service-agnostic.
	Binaries call Parse() in main, the infoflow cli binds the same variables to
	its cobra persistent flags instead.
*/

package flag

import (
	"flag"
)

const (
	APIServer = "api_server"
	Panoptic  = "panoptic"
	CLI       = "infoflow_cli"
)

var (
	ServiceName = CLI
	ConfigPath  = "app_config/infoflow_app_config.yaml"
)

func Register(fs *flag.FlagSet) {
	fs.StringVar(&ServiceName, "service", ServiceName, "service name reported in logs and metrics")
	fs.StringVar(&ConfigPath, "config", ConfigPath, "path to the yaml application config")
}

// Parse registers the shared flags on the default flag set and parses the
// command line.
func Parse(service string) {
	ServiceName = service
	Register(flag.CommandLine)
	flag.Parse()
}
