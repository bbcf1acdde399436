package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dmitrijs2005/cloudpool/internal/client/client"
	"github.com/dmitrijs2005/cloudpool/internal/client/config"
)

var ErrUsage = errors.New("usage error")

// getSimpleText and getSecret are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getSecret = GetSecret

type command struct {
	usage   string
	summary string
	auth    bool
	run     func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"ping":     {"ping", "check the server is reachable", false, (*App).ping},
	"register": {"register", "create a new user", false, (*App).register},
	"login":    {"login", "log in and print a token pair", false, (*App).login},
	"upload":   {"upload [-team id] [-profiles a,b] <path>", "split a file across linked accounts", true, (*App).upload},
	"list":     {"list [-team id]", "list files", true, (*App).list},
	"get":      {"get [-o dir] <file-id>", "download and reassemble a file", true, (*App).get},
	"delete":   {"delete <file-id>", "delete a file and its chunks", true, (*App).delete},
	"share":    {"share <file-id> <profile,...>", "change the profiles a team file targets", true, (*App).share},
	"orphans":  {"orphans", "list files with chunks on unlinked accounts", true, (*App).orphans},
	"stats":    {"stats [-team id]", "show pooled storage usage", true, (*App).stats},
	"accounts": {"accounts [-team id]", "list linked cloud accounts", true, (*App).accounts},
	"link":     {"link [-team id] [-refresh] <provider> <email>", "link a cloud account", true, (*App).link},
	"unlink":   {"unlink [-team id] <provider> [email]", "unlink one account or every account of a provider", true, (*App).unlink},
	"impact":   {"impact <provider> [email]", "show files affected by unlinking an account", true, (*App).impact},
}

type App struct {
	config *config.Config
	client client.Client
	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	tokens := client.Tokens{AccessToken: c.AccessToken, RefreshToken: c.RefreshToken}
	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, c.MaxMessageSize, tokens)
	if err != nil {
		return nil, err
	}
	return newApp(c, apiClient, os.Stdin, os.Stdout, os.Stderr), nil
}

func newApp(c *config.Config, cl client.Client, in io.Reader, out, errOut io.Writer) *App {
	return &App{config: c, client: cl, reader: bufio.NewReader(in), out: out, errOut: errOut}
}

// Run executes the command named by args[0] and closes the connection.
func (a *App) Run(ctx context.Context, args []string) error {
	defer a.client.Close()

	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage(a.out)
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		a.usage(a.errOut)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	if cmd.auth && a.client.Tokens().AccessToken == "" {
		if err := a.promptAccessToken(); err != nil {
			return err
		}
	}

	if a.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.RequestTimeout)
		defer cancel()
	}

	before := a.client.Tokens()
	err := cmd.run(a, ctx, args[1:])

	if after := a.client.Tokens(); cmd.auth && after != before {
		fmt.Fprintf(a.errOut, "access token refreshed\naccess_token: %s\nrefresh_token: %s\n", after.AccessToken, after.RefreshToken)
	}
	return err
}

func (a *App) promptAccessToken() error {
	tok, err := getSecret("Access token", a.errOut)
	if err != nil {
		return err
	}
	if len(tok) == 0 {
		return fmt.Errorf("%w: an access token is required, run login first", ErrUsage)
	}
	t := a.client.Tokens()
	t.AccessToken = string(tok)
	a.client.SetTokens(t)
	return nil
}

func (a *App) usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Usage: cloudpool [-a addr] [-token t] [-refresh r] [-timeout s] <command> [args]")
	fmt.Fprintln(w, "Commands:")
	for _, n := range names {
		c := commands[n]
		fmt.Fprintf(w, "  %-48s %s\n", c.usage, c.summary)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
