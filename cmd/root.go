package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

const appName = "gmail-file-downloader"

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the CLI
func SetVersion(v string) {
	version = v
}

// app carries the streams and the logger shared by all commands of one
// invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// logger is replaced by the configured console logger once flags and
	// config are resolved.
	logger *slog.Logger

	flags globalFlags
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: slog.New(slog.NewTextHandler(stderr, nil)),
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Downloads Gmail attachments to a local directory",
		Long: `gmail-file-downloader pages through the messages of a Gmail mailbox,
optionally filtered by search queries, and saves every attachment into a local
directory. Attachments whose file already exists are skipped, so repeated runs
only download what is new.

Authorization uses an OAuth client secrets file (auth/credentials.json by
default). The token obtained on the first run is stored next to it and
refreshed automatically.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate(`{{printf "gmail-file-downloader version %s\n" .Version}}`)
	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	a.flags.register(rootCmd)

	rootCmd.AddCommand(newDownloadCmd(a))
	rootCmd.AddCommand(newAuthCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// withDefaultCommand inserts download-attachments when args do not name a
// subcommand, so flags can be given directly to the binary.
func withDefaultCommand(args []string) []string {
	if len(args) == 0 {
		return []string{downloadCmdName}
	}
	switch args[0] {
	case "-h", "--help", "--version":
		return args
	}
	if strings.HasPrefix(args[0], "-") {
		return append([]string{downloadCmdName}, args...)
	}
	return args
}

// run executes the CLI with args and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := newApp(stdin, stdout, stderr)
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(withDefaultCommand(args))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		a.logger.Error(fmt.Sprintf("error doing, message: %s", err))
		return 1
	}
	return 0
}

// Execute is the main entry point for the CLI application
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
