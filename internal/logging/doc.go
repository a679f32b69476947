// Package logging provides file-based structured logging with rotation for
// notedex. Every run appends JSON lines to ~/.notedex/logs/notedex.log;
// --debug lowers the level to debug and mirrors the log to stderr.
//
// The Viewer reads those files back for `notedex logs`.
package logging
