// Package common contains shared constants and sentinel errors used across
// the gateway, the HTTP API and the CLI.
package common

// StatusIPFiltered marks the synthetic record returned when the bucket
// appears to block this host.
const StatusIPFiltered = "ip_filtered"

// DefaultMimeCategory is assigned to listed records; the bucket does not
// report content types.
const DefaultMimeCategory = "pdf"
