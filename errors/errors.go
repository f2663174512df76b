// Package errors defines the static errors shared across the Nimbus CLI
// and the helpers that print them and translate them into exit codes.
package errors

import "errors"

var (
	// Prerequisites.
	ErrCLINotInstalled = errors.New("required CLI is not installed")
	ErrNotLoggedIn     = errors.New("not logged in")

	// Resource lookups.
	ErrNoResults       = errors.New("no matching resources found")
	ErrNotFound        = errors.New("resource not found")
	ErrServerNotReady  = errors.New("server is not ready")
	ErrInvalidSelection = errors.New("invalid selection")

	// Required input.
	ErrNameRequired     = errors.New("name is required")
	ErrUsernameRequired = errors.New("username is required")
	ErrPasswordRequired = errors.New("password is required")

	// Jump server and tunnel.
	ErrSSHTimeout     = errors.New("SSH connection timeout")
	ErrNoTunnel       = errors.New("no active SSH tunnel")
	ErrTunnelFailed   = errors.New("failed to establish SSH tunnel")
	ErrJumpServerLost = errors.New("failed to get jump server public IP")

	// Wrapped tools.
	ErrCommandFailed = errors.New("command failed")
	ErrDumpFailed    = errors.New("database dump failed")

	// User action.
	ErrCancelled = errors.New("operation cancelled")
)
