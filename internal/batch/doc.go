// Package batch runs a group plan against a transcription client.
//
// Groups are dispatched strictly in plan order, one request in flight at a
// time. A pacing policy spaces consecutive requests, skipped groups cost
// nothing, and the first failure aborts the run unless the continue policy
// is selected. Every request is recorded in the optional ledger, which also
// enforces the model's daily request limit.
package batch
