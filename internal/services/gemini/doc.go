// Package gemini implements transcription.Client on the Gemini API through
// the google.golang.org/genai SDK (models.generateContent).
//
// Images are sent as inline PNG blobs in page order followed by the ordering
// instruction; the run's system instructions travel in systemInstruction.
// API failures are classified from genai.APIError: 429 becomes a rate-limited
// RemoteError carrying the server's RetryInfo hint. A response
// with no candidates, a blocked prompt, or an empty candidate is also returned
// as a RemoteError so callers never write an empty transcription.
package gemini
