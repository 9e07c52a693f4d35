// Package logging provides structured logging utilities for gmail-file-downloader.
//
// All log output goes through log/slog. The package builds the console handler
// used by the CLI and defines the attribute keys shared by the download loop,
// the Gmail client and the OAuth bootstrap, so that a run can be filtered by
// message, attachment or page regardless of which component logged the line.
//
// # Usage Patterns
//
//	logger, err := logging.New(os.Stderr, "debug", logging.FormatText)
//	logger.Info("saving attachment",
//	    logging.MessageID(id),
//	    logging.Filename(name))
//
// # Security Considerations
//
// OAuth tokens are never logged directly. Use SanitizeToken when a token has to
// be mentioned in a log line.
package logging
