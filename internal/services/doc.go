// Package services defines shared utilities consumed by the batch runner and
// the remote integrations.
//
// Key responsibilities:
//   - Sentinel failure markers (malformed range, missing image, remote request,
//     and friends) plus the Wrap helper that attaches component context.
//   - Context helpers that stamp run IDs, group indices, and model keys for
//     logging.
//
// Concrete integrations live in subpackages (gemini). Use these helpers when
// wiring new components so error classification stays uniform.
package services
