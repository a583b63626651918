// Package voice is the single entry point for producing HOLLY speech. It puts
// the on-disk cache in front of the configured synthesis backend.
package voice
