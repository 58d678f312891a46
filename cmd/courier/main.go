// courier is the command-line interface for the courier HTTPS transport.
//
// It delivers text payloads to https addresses and runs receivers that
// print every delivery they accept:
//
//	courier listen --port 7847 --cert server.pem --key server-key.pem --ca ca.pem --verify-client-cert
//	courier send https://localhost:7847/#tok '{"a":1}' --cert client.pem --key client-key.pem --ca ca.pem
//
// Run courier --help for every command and flag.
package main

import (
	"fmt"
	"os"

	"github.com/sufield/courier/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", cli.RedactError(err))
		os.Exit(cli.ExitCode(err))
	}
}
