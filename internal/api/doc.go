// Package api defines the transport payloads shared by the daemon's HTTP
// surface and the command line client, plus the client itself.
package api
