// Netsdr is a client for NetSDR-family software defined radio
// receivers. It drives the TCP control channel, receives I/Q sample
// datagrams over UDP, and writes captures to raw or WAV files.
//
// Usage:
//
//	netsdr capture [flags]
//	netsdr monitor [flags]
//	netsdr scan [flags]
//	netsdr echo [flags]
//	netsdr generate [flags]
//
// See 'netsdr <command> --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rfwave/netsdr/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "netsdr",
	Short: "NetSDR receiver client",
	Long: `A client for NetSDR-family software defined radio receivers.

The client speaks the receiver's binary control protocol over TCP,
streams I/Q sample datagrams over UDP, and can discover receivers on
the local network via mDNS. A built-in echo service and traffic
generator allow full sessions against localhost without hardware.`,
	Version: version.Version,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}
