package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/api"
	"github.com/dmitrijs2005/cloudpool/internal/filex"
	"github.com/docker/go-units"
)

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *App) upload(ctx context.Context, args []string) error {
	fs := a.flagSet("upload")
	team := fs.String("team", "", "team id")
	profiles := fs.String("profiles", "", "comma separated target profiles")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: upload needs exactly one path", ErrUsage)
	}

	f, err := filex.ReadForUpload(fs.Arg(0))
	if err != nil {
		return err
	}

	info, err := a.client.Upload(ctx, &api.UploadRequest{
		FileName:       f.Name,
		MimeType:       f.MimeType,
		Data:           f.Data,
		TeamID:         *team,
		TargetProfiles: splitList(*profiles),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "uploaded %s (%s) as %s in %d parts\n", info.FileName, units.HumanSize(float64(info.TotalSize)), info.ID, info.Parts)
	return nil
}

func (a *App) list(ctx context.Context, args []string) error {
	fs := a.flagSet("list")
	team := fs.String("team", "", "team id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	files, err := a.client.List(ctx, *team)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(a.out, "no files")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tTYPE\tCREATED\tPROFILES")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.FileName, units.HumanSize(float64(f.TotalSize)), f.MimeType,
			f.CreatedAt.Local().Format(time.DateTime), strings.Join(f.TargetProfiles, ","))
	}
	return tw.Flush()
}

func (a *App) get(ctx context.Context, args []string) error {
	fs := a.flagSet("get")
	dir := fs.String("o", ".", "output directory")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: get needs exactly one file id", ErrUsage)
	}

	resp, err := a.client.Get(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	path, err := filex.WriteDownload(*dir, resp.File.FileName, resp.Data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "saved %s (%s)\n", path, units.HumanSize(float64(len(resp.Data))))
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: delete needs exactly one file id", ErrUsage)
	}

	resp, err := a.client.Delete(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "deleted as %s: %d chunks removed, %d failed, %d on unlinked accounts\n",
		resp.DeletedBy, resp.Deleted, resp.Failed, resp.Inaccessible)
	return nil
}

func (a *App) share(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: share needs a file id and a profile list", ErrUsage)
	}

	info, err := a.client.Share(ctx, args[0], splitList(args[1]))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s now targets %s\n", info.FileName, strings.Join(info.TargetProfiles, ","))
	return nil
}

func (a *App) orphans(ctx context.Context, _ []string) error {
	resp, err := a.client.Orphaned(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%d of %d files have chunks on unlinked accounts\n", len(resp.Files), resp.TotalFiles)
	if len(resp.Files) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMISSING\tACCOUNTS")
	for _, f := range resp.Files {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n", f.ID, f.FileName, f.MissingParts, f.TotalParts, strings.Join(f.MissingAccounts, ","))
	}
	return tw.Flush()
}
