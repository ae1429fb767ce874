// Command rollaball-license inspects and manages the activation state of a
// RollABall installation from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/CloudNativeWorks/rollaball-license/assets"
	"github.com/CloudNativeWorks/rollaball-license/internal/cli"
	"github.com/CloudNativeWorks/rollaball-license/rblicense"
)

var errNotActivated = errors.New("not activated")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errNotActivated) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

type app struct {
	v      *viper.Viper
	out    io.Writer
	logger *zap.Logger
	svc    *rblicense.Service
	dir    string
}

func newRootCommand(out io.Writer) *cobra.Command {
	a := &app{v: cli.NewViper("ROLLABALL"), out: out}

	root := &cobra.Command{
		Use:               "rollaball-license",
		Short:             "Inspect and manage RollABall activation",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	flags := root.PersistentFlags()
	flags.String("log-level", "", "log level (debug, info, warn, error); empty disables logging")
	flags.String("exe-dir", "", "directory holding license.key (default: next to the game executable)")
	flags.String("data-dir", "", "per-user data directory (default: OS config dir/RollABall)")
	flags.String("resources", "", "directory to load license_public_key from instead of the bundled key")
	flags.Bool("dev", false, "run in development mode (only honoured by rollaball_dev builds)")
	_ = a.v.BindPFlags(flags)

	root.AddCommand(
		a.machineCodeCommand(),
		a.statusCommand(),
		a.activateCommand(),
		a.clearCommand(),
		a.watchCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	logger, err := cli.NewLogger(a.v.GetString("log-level"))
	if err != nil {
		return err
	}
	a.logger = logger

	system, err := rblicense.NewSystemPlatform()
	if err != nil {
		return err
	}
	platform := overridePlatform{
		Platform: system,
		exe:      a.v.GetString("exe-dir"),
		data:     a.v.GetString("data-dir"),
	}
	a.dir = platform.ExeDir()

	var resources rblicense.ResourceLoader = assets.Resources()
	if dir := a.v.GetString("resources"); dir != "" {
		resources = rblicense.NewFSResources(os.DirFS(dir))
	}

	mode := rblicense.Shipping
	if a.v.GetBool("dev") {
		mode = rblicense.Development
	}

	a.svc = rblicense.NewService(platform, resources,
		rblicense.WithLogger(logger.Named("license")),
		rblicense.WithBuildMode(mode),
	)
	logger.Debug("license service ready",
		zap.String("exe_dir", a.dir),
		zap.String("data_dir", platform.PersistentDataDir()),
		zap.Stringer("mode", mode),
	)
	return nil
}

func (a *app) machineCodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "machine-code",
		Short: "Print this installation's machine code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code := a.svc.GetMachineCode()
			write, _ := cmd.Flags().GetBool("write")
			if write {
				if err := a.svc.Store().WriteMachineCodeIfAbsent(code); err != nil {
					return err
				}
			}
			fmt.Fprintln(a.out, code)
			return nil
		},
	}
	cmd.Flags().Bool("write", false, "also write machine_code.txt if it does not exist")
	return cmd
}

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the license file and print the result",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.report(a.svc.Status())
		},
	}
}

func (a *app) activateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activate [KEY]",
		Short: "Validate an activation key and save it as license.key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readKey(cmd, args)
			if err != nil {
				return err
			}
			if ok, reason := a.svc.TryValidateActivationKey(key); !ok {
				return fmt.Errorf("activation key rejected: %s", reason)
			}
			a.svc.SaveActivationKey(key)
			return a.report(a.svc.Status())
		},
	}
	cmd.Flags().String("file", "", "read the key from a file ('-' for stdin)")
	return cmd
}

func (a *app) clearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete license.key",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a.svc.ClearActivationKey()
			fmt.Fprintln(a.out, "License cleared.")
			return nil
		},
	}
}

func (a *app) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-check activation whenever license.key changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.watch(cmd.Context())
		},
	}
}

func (a *app) watch(ctx context.Context) error {
	if a.dir == "" {
		return rblicense.ErrNoDirectory
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(a.dir); err != nil {
		return fmt.Errorf("watch %s: %w", a.dir, err)
	}
	a.logger.Info("watching for license changes", zap.String("dir", a.dir))
	_ = a.report(a.svc.Status())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != rblicense.LicenseFileName {
				continue
			}
			a.logger.Debug("license file event", zap.Stringer("op", ev.Op))
			_ = a.report(a.svc.Status())
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// report prints a status result and returns errNotActivated when the game
// would refuse to start.
func (a *app) report(r rblicense.Result) error {
	fmt.Fprintln(a.out, r.Reason)
	if r.Path != "" {
		fmt.Fprintf(a.out, "  file:    %s\n", r.Path)
	}
	if p := r.Payload; p != nil && r.Activated {
		fmt.Fprintf(a.out, "  machine: %s\n", p.Machine)
		if p.IssuedAt != "" {
			fmt.Fprintf(a.out, "  issued:  %s\n", p.IssuedAt)
		}
		fmt.Fprintf(a.out, "  expires: %s\n", describeExpiry(p.ExpiresAt))
	}
	if !r.Activated {
		return errNotActivated
	}
	return nil
}

func describeExpiry(value string) string {
	if value == "" {
		return "never"
	}
	t, err := rblicense.ParseExpiry(value)
	if err != nil {
		return value
	}
	return fmt.Sprintf("%s (%s)", t.Format(time.RFC3339), humanize.Time(t))
}

func readKey(cmd *cobra.Command, args []string) (string, error) {
	file, _ := cmd.Flags().GetString("file")
	switch {
	case len(args) == 1 && file != "":
		return "", errors.New("pass the key as an argument or with --file, not both")
	case len(args) == 1:
		return args[0], nil
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return "", errors.New("no activation key given")
	}
}

// overridePlatform replaces the executable and data directories of an
// underlying Platform when set.
type overridePlatform struct {
	rblicense.Platform
	exe  string
	data string
}

func (p overridePlatform) ExeDir() string {
	if p.exe != "" {
		return p.exe
	}
	return p.Platform.ExeDir()
}

func (p overridePlatform) PersistentDataDir() string {
	if p.data != "" {
		return p.data
	}
	return p.Platform.PersistentDataDir()
}
