// Package application provides the application interface for sitecfg commands.
//
// Commands accept this interface rather than the concrete App type so they
// can be tested with Mock:
//
//	mock := &application.Mock{
//	    ClientFunc: func() (sitecfg.Client, error) {
//	        return testClient, nil
//	    },
//	}
//	cmd := show.NewCommand(mock)
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/sitecfg"
)

// Application provides what commands need from the running app.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Client returns the sitecfg client, creating it on first use.
	Client() (sitecfg.Client, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, markdown).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
