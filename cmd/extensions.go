package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"vividfusion/internal/clients"
	"vividfusion/internal/extension"
	"vividfusion/internal/httputil"
	"vividfusion/internal/plugin"
	"vividfusion/internal/ui"
)

var extensionsCmd = &cobra.Command{
	Use:     "extensions",
	Aliases: []string{"ext"},
	Short:   "Manage database, stream and subtitle extensions",
}

var extListCmd = &cobra.Command{
	Use:   "list [type]",
	Short: "List extensions (with --watch, keep listing as plugins change)",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		var only *clients.ExtensionType
		if len(args) == 1 {
			kind, err := clients.ParseExtensionType(args[0])
			if err != nil {
				return err
			}
			only = &kind
		}

		rows := listRows(ctx, a, a.ext.List(), only)
		printListing(rows)
		if failures := a.loadFailures(); len(failures) > 0 {
			fmt.Fprintf(os.Stderr, "\n%d extension(s) could not be loaded:\n", len(failures))
			for _, err := range failures {
				fmt.Fprintf(os.Stderr, "  %v\n", err)
			}
		}
		if !cfg.Watch {
			return nil
		}

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
		for infos := range a.ext.Updates(ctx) {
			next := listRows(ctx, a, infos, only)
			if slices.EqualFunc(rows, next, slices.Equal[[]string]) {
				continue
			}
			rows = next
			fmt.Println()
			printListing(rows)
		}
		return nil
	}),
}

func listRows(ctx context.Context, a *app, infos []extension.Info, only *clients.ExtensionType) [][]string {
	var rows [][]string
	for _, info := range infos {
		if only != nil && info.Kind != *only {
			continue
		}
		md := info.Metadata
		mark := ""
		if id, err := selectedID(ctx, a, info.Kind); err == nil && id == md.ID {
			mark = "*"
		}
		rows = append(rows, []string{
			mark, info.Kind.String(), md.ID, md.Name, md.Version,
			md.ImportType.String(), yesNo(md.Enabled),
		})
	}
	return rows
}

func printListing(rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("No extensions found.")
		return
	}
	renderTable(os.Stdout, []string{"", "TYPE", "ID", "NAME", "VERSION", "SOURCE", "ENABLED"}, rows)
}

var extEnableCmd = &cobra.Command{
	Use:   "enable <type> <id>",
	Short: "Enable an extension",
	Args:  cobra.ExactArgs(2),
	RunE:  withApp(setEnabled(true)),
}

var extDisableCmd = &cobra.Command{
	Use:   "disable <type> <id>",
	Short: "Disable an extension",
	Args:  cobra.ExactArgs(2),
	RunE:  withApp(setEnabled(false)),
}

func setEnabled(enabled bool) func(context.Context, *app, []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		kind, err := clients.ParseExtensionType(args[0])
		if err != nil {
			return err
		}
		return a.ext.SetEnabled(ctx, kind, args[1], enabled)
	}
}

var extSelectCmd = &cobra.Command{
	Use:   "select <type> <id>",
	Short: "Make an extension the active one for its type",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		kind, err := clients.ParseExtensionType(args[0])
		if err != nil {
			return err
		}
		switch kind {
		case clients.Database:
			return a.ext.Database.Select(ctx, args[1])
		case clients.Stream:
			return a.ext.Stream.Select(ctx, args[1])
		default:
			return a.ext.Subtitle.Select(ctx, args[1])
		}
	}),
}

var extPriorityCmd = &cobra.Command{
	Use:   "priority <type> <id>...",
	Short: "Set the display order of extensions of one type",
	Args:  cobra.MinimumNArgs(2),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		kind, err := clients.ParseExtensionType(args[0])
		if err != nil {
			return err
		}
		return a.ext.SetPriority(ctx, kind, args[1:])
	}),
}

var extInstallCmd = &cobra.Command{
	Use:   "install <path>",
	Short: "Install a plugin file or package directory",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		md, err := a.ext.Install(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Installed %s %s (%s)\n", md.ID, md.Version, md.ImportType)
		return nil
	}),
}

var extUninstallCmd = &cobra.Command{
	Use:   "uninstall <id>",
	Short: "Remove an installed extension",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		md, ok := a.ext.Find(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", extension.ErrUnknownExtension, args[0])
		}
		if err := a.ext.Uninstall(ctx, md); err != nil {
			return err
		}
		fmt.Printf("Uninstalled %s\n", md.ID)
		return nil
	}),
}

var extSettingsCmd = &cobra.Command{
	Use:   "settings <type> <id> [key=value...]",
	Short: "Show or change an extension's settings",
	Args:  cobra.MinimumNArgs(2),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		kind, err := clients.ParseExtensionType(args[0])
		if err != nil {
			return err
		}
		if _, ok := a.ext.Find(args[1]); !ok {
			return fmt.Errorf("%w: %s", extension.ErrUnknownExtension, args[1])
		}
		settings := a.ext.Settings(kind, args[1])
		for _, kv := range args[2:] {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("expected key=value, got %q", kv)
			}
			if err := settings.Set(key, value); err != nil {
				return fmt.Errorf("saving %s: %w", key, err)
			}
		}

		all := settings.All()
		keys := slices.Sorted(maps.Keys(all))
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, all[k]})
		}
		renderTable(os.Stdout, []string{"KEY", "VALUE"}, rows)
		return nil
	}),
}

var extCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load every plugin file and package and report the ones that work",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		loader := plugin.NewProcessLoader(a.logger)
		defer loader.Close()
		files := plugin.NewFileSource(a.paths.Root, cfg.PluginExtension, a.logger)
		pkgs := plugin.NewPackageSource(plugin.DirPackageManager{Root: a.paths.Packages}, a.logger, cfg.FeaturePrefix+".extension")

		var rows [][]string
		rows = append(rows, checkKind[clients.DatabaseClient](clients.Database, files, pkgs, loader, a)...)
		rows = append(rows, checkKind[clients.StreamClient](clients.Stream, files, pkgs, loader, a)...)
		rows = append(rows, checkKind[clients.SubtitleClient](clients.Subtitle, files, pkgs, loader, a)...)
		if len(rows) == 0 {
			fmt.Println("No external extensions loaded.")
			return nil
		}
		renderTable(os.Stdout, []string{"TYPE", "ID", "CLASS", "PATH"}, rows)
		return nil
	}),
}

// checkKind instantiates every external extension of one type. Failures
// are logged by the repos and left out of the result.
func checkKind[T clients.BaseClient](kind clients.ExtensionType, files *plugin.FileSource, pkgs *plugin.PackageSource, loader plugin.Loader, a *app) [][]string {
	var rows [][]string
	repos := []*plugin.EagerRepo[T]{
		plugin.NewFileRepo[T](files, loader, kind, a.logger),
		plugin.NewInstalledRepo[T](pkgs, loader, kind, a.logger),
	}
	for _, repo := range repos {
		for _, ext := range repo.Load().Value() {
			md := ext.Metadata
			rows = append(rows, []string{kind.String(), md.ID, md.ClassName, md.Path})
		}
	}
	return rows
}

func init() {
	extensionsCmd.AddCommand(extListCmd, extEnableCmd, extDisableCmd, extSelectCmd,
		extPriorityCmd, extInstallCmd, extUninstallCmd, extSettingsCmd, extCheckCmd,
		extUpdateCmd, extRemoteCmd)
}

func selectedID(ctx context.Context, a *app, kind clients.ExtensionType) (string, error) {
	switch kind {
	case clients.Database:
		ext, err := a.ext.Database.Selected(ctx)
		if err != nil {
			return "", err
		}
		return ext.ID(), nil
	case clients.Stream:
		ext, err := a.ext.Stream.Selected(ctx)
		if err != nil {
			return "", err
		}
		return ext.ID(), nil
	default:
		ext, err := a.ext.Subtitle.Selected(ctx)
		if err != nil {
			return "", err
		}
		return ext.ID(), nil
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// renderTable draws a bordered table on terminals and tab-separated
// lines otherwise, so output stays scriptable.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	if f, ok := w.(*os.File); !ok || !ui.IsTerminal(f) {
		fmt.Fprintln(w, strings.Join(headers, "\t"))
		for _, r := range rows {
			fmt.Fprintln(w, strings.Join(r, "\t"))
		}
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
}

// tempDownloadDir is where update and remote downloads are staged before
// installation.
func tempDownloadDir() (string, func(), error) {
	dir, err := os.MkdirTemp("", "vividfusion-dl-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating download dir: %w", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// pluginFileName is the canonical name a downloaded plugin is staged as.
func pluginFileName(dir, class string) string {
	return filepath.Join(dir, httputil.SanitizeFilename(class)+"."+cfg.PluginExtension)
}
