// Package transcription defines the narrow contract between the batch runner
// and a remote multimodal transcription service, plus the fixed set of
// supported models.
//
// # Contract
//
// Client.Generate sends one group's payload with the run's system
// instructions. Success yields a Result; every failure, including a response
// with zero candidates, is a *RemoteError so the runner handles them on one
// path. RemoteError.RateLimited distinguishes 429-equivalent signals for the
// pacing policy.
//
// # Models
//
// Models are addressed by short keys (25fl, 25f, 25p, 3fp) that also appear in
// output file names. LookupModel validates a key against the enumeration.
package transcription
