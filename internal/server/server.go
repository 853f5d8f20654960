package server

import "context"

// Server is a long-running listener the application starts and drains.
type Server interface {
	// Start must return once the server accepts connections.
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Addr() string
}
