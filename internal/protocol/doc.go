// Package protocol implements the RESP wire format: a streaming command
// decoder (resp.go) and a composable reply encoder (reply.go).
package protocol
