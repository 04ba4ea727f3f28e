// Package authsdk is the typed Go client for the keywarden credential
// service. The server's HTTP handlers share its response and error types so
// the wire format is defined in exactly one place.
package authsdk
