// Package commands implements the kvstore command line: "serve" runs the HTTP
// API over the configured backend and "dump" prints a snapshot file.
package commands
