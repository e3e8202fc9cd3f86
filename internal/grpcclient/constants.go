// Package grpcclient provides a client for the classifier inference gRPC
// server.
package grpcclient

import "time"

// Client configuration defaults
const (
	// Keepalive configuration
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// ClassifyMethod is the full gRPC method name for tile classification.
	ClassifyMethod = "/sightveil.v1.Classifier/Classify"

	// TileJPEGQuality balances wire size against classifier accuracy.
	TileJPEGQuality = 80
)
