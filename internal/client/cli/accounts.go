package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/api"
	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/docker/go-units"
)

func human(n int64) string {
	return units.HumanSize(float64(n))
}

func (a *App) stats(ctx context.Context, args []string) error {
	fs := a.flagSet("stats")
	team := fs.String("team", "", "team id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	resp, err := a.client.StorageStats(ctx, *team)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tACCOUNT\tUSED\tAVAILABLE\tTOTAL\tERROR")
	for _, s := range resp.Accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", s.Provider, s.AccountEmail, human(s.Used), human(s.Available), human(s.Total), s.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "pool: %s used, %s available\n", human(resp.TotalUsed), human(resp.TotalAvailable))
	return nil
}

func (a *App) accounts(ctx context.Context, args []string) error {
	fs := a.flagSet("accounts")
	team := fs.String("team", "", "team id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	list, err := a.client.LinkedAccounts(ctx, *team)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "no linked accounts")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tACCOUNT\tEXPIRES")
	for _, acc := range list {
		expires := "-"
		if !acc.ExpiresAt.IsZero() {
			expires = acc.ExpiresAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", acc.Provider, acc.AccountEmail, expires)
	}
	return tw.Flush()
}

// link reads the provider credentials from hidden prompts so they never
// land in shell history.
func (a *App) link(ctx context.Context, args []string) error {
	fs := a.flagSet("link")
	team := fs.String("team", "", "team id")
	withRefresh := fs.Bool("refresh", false, "also prompt for a refresh token")
	expires := fs.Duration("expires", 0, "access token lifetime, zero for the provider default")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%w: link needs a provider and an account email", ErrUsage)
	}

	access, err := getSecret("Provider access token", a.errOut)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(access)

	req := &api.LinkAccountRequest{
		TeamID:       *team,
		Provider:     fs.Arg(0),
		AccountEmail: fs.Arg(1),
		AccessToken:  string(access),
	}
	if *withRefresh {
		refresh, err := getSecret("Provider refresh token", a.errOut)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(refresh)
		req.RefreshToken = string(refresh)
	}
	if *expires > 0 {
		req.ExpiresAt = time.Now().Add(*expires)
	}

	if err := a.client.LinkAccount(ctx, req); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "linked %s:%s\n", req.Provider, req.AccountEmail)
	return nil
}

func (a *App) unlink(ctx context.Context, args []string) error {
	fs := a.flagSet("unlink")
	team := fs.String("team", "", "team id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return fmt.Errorf("%w: unlink needs a provider and an optional account email", ErrUsage)
	}

	resp, err := a.client.UnlinkAccount(ctx, &api.UnlinkAccountRequest{
		TeamID:       *team,
		Provider:     fs.Arg(0),
		AccountEmail: fs.Arg(1),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "removed %d account(s), %d remaining\n", resp.Removed, resp.Remaining)
	return nil
}

func (a *App) impact(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: impact needs a provider and an optional account email", ErrUsage)
	}
	email := ""
	if len(args) == 2 {
		email = args[1]
	}

	resp, err := a.client.DisconnectImpact(ctx, args[0], email)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%d of %d files would lose chunks\n", resp.AffectedFiles, resp.TotalFiles)
	if len(resp.AffectedFileNames) > 0 {
		fmt.Fprintln(a.out, strings.Join(resp.AffectedFileNames, "\n"))
	}
	return nil
}
