// Package store keeps downloaded attachments in a single flat directory.
//
// A file's presence is the only record that an attachment was downloaded, so
// files are written to a temporary name first and renamed into place once
// complete.
package store
