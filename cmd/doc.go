// Package cmd implements the command-line interface for gmail-file-downloader.
//
// This package provides the following commands:
//   - download-attachments: Save the attachments of all matching messages
//   - auth: Run the OAuth bootstrap only and store the token
//   - version: Display version information
//
// The download-attachments command is the default command when no
// subcommand is specified.
package cmd
