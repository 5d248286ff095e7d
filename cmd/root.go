package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	config  = newConfig()
)

var rootCmd = &cobra.Command{
	Use:   "icmprobe",
	Short: "icmprobe probes hosts and routes with ICMP echo requests",
	Long: "icmprobe is a ping and traceroute utility built on raw ICMP sockets.\n" +
		"Both commands require the privileges to open raw sockets.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return readConfigFile(config, cfgFile)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file, in any format supported by viper")
	flags.String("log-level", "warn", "logging level: trace, debug, info, warn, error")
	flags.Int("identifier", 0, "ICMP identifier of echo requests (default derived from the process id)")
	flags.Int("ttl", 64, "IP time to live of ping echo requests")
	flags.String("format", formatText, "output format: text, json or yaml")
	flags.Bool("progress", false, "print one character per attempt instead of one line")

	bindFlag(config, "log.level", flags.Lookup("log-level"))
	bindFlag(config, "identifier", flags.Lookup("identifier"))
	bindFlag(config, "ttl", flags.Lookup("ttl"))
	bindFlag(config, "format", flags.Lookup("format"))
	bindFlag(config, "progress", flags.Lookup("progress"))

	rootCmd.AddCommand(pingCmd, tracerouteCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
