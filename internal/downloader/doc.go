// Package downloader pages through a mailbox and saves every message
// attachment that is not already on disk.
//
// The loop is strictly sequential: one page, one message and one attachment
// at a time. The first error ends the run; nothing is retried. Already saved
// files are skipped without contacting the API, so an interrupted run can
// simply be started again, optionally from the last logged page token.
package downloader
