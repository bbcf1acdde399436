package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string        address and port of the backend server
//	-token string    access token
//	-refresh string  refresh token, used once the access token expires
//	-timeout int     request timeout in seconds
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with command arguments.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(CommandLineGlobals(os.Args[1:]), []string{"-a", "-token", "-refresh", "-timeout"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.AccessToken, "token", cfg.AccessToken, "access token")
	fs.StringVar(&cfg.RefreshToken, "refresh", cfg.RefreshToken, "refresh token")
	timeout := fs.Int("timeout", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}

// CommandLineGlobals returns the leading global flags of args, stopping at
// the command name.
func CommandLineGlobals(args []string) []string {
	n := len(args) - len(CommandArgs(args))
	return args[:n]
}

// CommandArgs returns args from the command name onwards. Every global flag
// takes a value, either as the next argument or after "=".
func CommandArgs(args []string) []string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") {
			return args[i:]
		}
		if strings.Contains(a, "=") {
			continue
		}
		i++
	}
	return []string{}
}
