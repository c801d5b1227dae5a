package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"vividfusion/internal/plugin"
	"vividfusion/internal/update"
)

var extUpdateCmd = &cobra.Command{
	Use:   "update [id...]",
	Short: "Download and apply updates for installed extensions",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		checker := update.NewChecker(a.http, "."+cfg.PluginExtension, a.logger)
		dir, cleanup, err := tempDownloadDir()
		if err != nil {
			return err
		}
		defer cleanup()

		var errs []error
		updated := 0
		for _, md := range updatable(a, args) {
			up, err := checker.Check(ctx, md)
			if err != nil {
				errs = append(errs, fmt.Errorf("checking %s: %w", md.ID, err))
				continue
			}
			if up.URL == "" {
				continue
			}
			path, err := checker.Download(ctx, up.URL, dir)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if err := a.ext.Upgrade(ctx, md, path, up.Version); err != nil {
				errs = append(errs, fmt.Errorf("updating %s: %w", md.ID, err))
				continue
			}
			fmt.Printf("Updated %s %s -> %s\n", md.ID, md.Version, up.Version)
			updated++
		}
		if updated == 0 && len(errs) == 0 {
			fmt.Println("All extensions are up to date.")
		}
		return errors.Join(errs...)
	}),
}

// updatable lists installed, non-built-in extensions once each, limited
// to ids when any are given.
func updatable(a *app, ids []string) []plugin.Metadata {
	seen := make(map[string]bool)
	var out []plugin.Metadata
	for _, info := range a.ext.List() {
		md := info.Metadata
		if md.ImportType == plugin.BuiltIn || seen[md.Key()] {
			continue
		}
		if len(ids) > 0 && !slices.Contains(ids, md.ID) {
			continue
		}
		seen[md.Key()] = true
		out = append(out, md)
	}
	return out
}

var extRemoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Browse and install extensions from a remote list",
}

var extRemoteListCmd = &cobra.Command{
	Use:   "list <url>",
	Short: "Show the extensions offered by a remote list",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		list, err := update.NewChecker(a.http, "."+cfg.PluginExtension, a.logger).ExtensionList(ctx, args[0])
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(list))
		for _, l := range list {
			installed := ""
			if md, ok := a.ext.Find(l.ClassName); ok {
				installed = md.Version
			}
			rows = append(rows, []string{l.ClassName, l.Name, l.Version, installed, strconv.Itoa(l.Status)})
		}
		renderTable(os.Stdout, []string{"CLASS", "NAME", "VERSION", "INSTALLED", "STATUS"}, rows)
		return nil
	}),
}

var extRemoteInstallCmd = &cobra.Command{
	Use:   "install <url> <class>",
	Short: "Download and install one extension from a remote list",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		checker := update.NewChecker(a.http, "."+cfg.PluginExtension, a.logger)
		list, err := checker.ExtensionList(ctx, args[0])
		if err != nil {
			return err
		}
		var listing *update.Listing
		for i := range list {
			if list[i].ClassName == args[1] {
				listing = &list[i]
				break
			}
		}
		if listing == nil {
			return fmt.Errorf("%s is not offered by %s", args[1], args[0])
		}

		dir, cleanup, err := tempDownloadDir()
		if err != nil {
			return err
		}
		defer cleanup()

		downloaded, err := checker.Download(ctx, listing.URL, dir)
		if err != nil {
			return err
		}
		path := pluginFileName(dir, listing.ClassName)
		if downloaded != path {
			if err := os.Rename(downloaded, path); err != nil {
				return fmt.Errorf("staging download: %w", err)
			}
		}
		if err := update.WriteManifest(path, *listing); err != nil {
			return err
		}

		md, err := a.ext.Install(ctx, path)
		if err != nil {
			return err
		}
		fmt.Printf("Installed %s %s\n", md.ID, md.Version)
		return nil
	}),
}

func init() {
	extRemoteCmd.AddCommand(extRemoteListCmd, extRemoteInstallCmd)
}
