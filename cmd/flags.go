package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/gmail-file-downloader/internal/config"
	"github.com/teemow/gmail-file-downloader/internal/google"
	"github.com/teemow/gmail-file-downloader/internal/logging"
)

// globalFlags are shared by every command that talks to Gmail.
type globalFlags struct {
	configPath  string
	authDir     string
	credentials string
	token       string
	logLevel    string
	logFormat   string
	verbose     bool
}

func (f *globalFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", fmt.Sprintf("Path to a TOML config file (default: ./%s if present)", config.DefaultFile))
	pf.StringVar(&f.authDir, "auth-dir", "", "Directory holding the OAuth client secrets and token (default: auth)")
	pf.StringVar(&f.credentials, "credentials", "", "OAuth client secrets file, relative to --auth-dir unless absolute (default: credentials.json)")
	pf.StringVar(&f.token, "token", "", "OAuth token file, relative to --auth-dir unless absolute (default: token.json)")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: info)")
	pf.StringVar(&f.logFormat, "log-format", "", "Log format: text or json (default: text)")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging")
}

// resolveConfig merges defaults, the config file and the flags that were set
// on the command line, in increasing order of precedence.
func (a *app) resolveConfig(cmd *cobra.Command, override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("auth-dir") {
		cfg.AuthDir = a.flags.authDir
	}
	if flags.Changed("credentials") {
		cfg.CredentialsFile = a.flags.credentials
	}
	if flags.Changed("token") {
		cfg.TokenFile = a.flags.token
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.flags.logFormat
	}
	if a.flags.verbose {
		cfg.LogLevel = "debug"
	}
	if override != nil {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(a.stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	a.logger = logger
	if cfg.Path != "" {
		a.logger.Debug("loaded config", "path", cfg.Path)
	}

	return cfg, nil
}

// authConfig maps the resolved configuration onto the auth file layout.
func authConfig(cfg *config.Config) google.AuthConfig {
	ac := google.DefaultAuthConfig()
	ac.Dir = cfg.AuthDir
	if cfg.CredentialsFile != "" {
		ac.CredentialsFile = cfg.CredentialsFile
	}
	if cfg.TokenFile != "" {
		ac.TokenFile = cfg.TokenFile
	}
	return ac
}

// newAuthorizer builds the OAuth bootstrap for cfg, prompting on the app's
// streams.
func (a *app) newAuthorizer(cfg *config.Config, opts ...google.Option) (*google.Authorizer, error) {
	prompter := &google.TerminalPrompter{In: a.stdin, Out: a.stdout, RequireTerminal: true}
	opts = append([]google.Option{
		google.WithPrompter(prompter),
		google.WithLogger(logging.NewSlogAdapter(logging.WithOperation(a.logger, "auth"))),
	}, opts...)
	return google.NewAuthorizer(authConfig(cfg), opts...)
}
