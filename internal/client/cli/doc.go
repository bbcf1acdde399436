// Package cli implements the one-shot CloudPool command-line client.
//
// Each invocation runs a single command against the server:
//
//	cloudpool [global flags] <command> [command flags] [args]
//
// register and login prompt for credentials and derive the login verifier
// locally, login prints the issued token pair. Every other command needs
// an access token from the config file or the -token flag. When the server
// reports an expired access token and a refresh token is configured, the
// client refreshes once and prints the new pair to stderr.
package cli
