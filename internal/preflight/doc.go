// Package preflight provides readiness checks for a transcription project
// and the remote service it depends on.
//
// "letterscribe status" renders every result as a table. The remote model
// check only runs when requested, since it contacts the API.
package preflight
