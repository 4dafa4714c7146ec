// Package main hosts the letterscribe CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration and logging once, then hands
// off to the internal packages: transcribe drives the batch runner, status
// renders preflight checks, and models and usage print reference tables.
// Keep this package lean and add behavior to the internal packages first.
package main
