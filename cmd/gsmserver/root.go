package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version 由 -ldflags 注入
	Version = "dev"
	Commit  = "unknown"
)

type rootOptions struct {
	configFile string
	v          *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}
	cmd := &cobra.Command{
		Use:           "gsmserver",
		Short:         "TCP server sockets on a u-blox cellular modem",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	opts.register(cmd)

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newTraceCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func (o *rootOptions) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&o.configFile, "config", "", "config file (yaml, toml or json)")
	pf.String("device", "", "serial device of the modem")
	pf.Int("baud", 0, "serial baud rate")
	pf.Uint16("port", 0, "port to listen on")
	pf.Bool("sync", true, "run the listen state machine synchronously")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.String("trace", "", "record the AT session to this file (zstd)")
	bindFlags(o.v, cmd)
}

// logger 按配置创建日志，未知级别按 info 处理
func logger(level string) *log.Logger {
	lv, err := log.ParseLevel(level)
	if err != nil {
		lv = log.InfoLevel
	}
	l := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Level: lv})
	if err != nil {
		l.Warn("unknown log level", "level", level)
	}
	return l
}
