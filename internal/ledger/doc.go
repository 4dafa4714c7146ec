// Package ledger keeps a SQLite history of transcription requests.
//
// Every request sent to the remote service is recorded with its model, group,
// token usage and outcome. The runner uses CountSince to refuse work once a
// model's daily request allowance is spent, and the usage command lists
// recent entries. The ledger never schedules or resumes work; the plan file
// and --skip remain the only resume mechanism.
//
// Schema changes bump schemaVersion in schema.go; users delete the database to
// adopt the new schema.
package ledger
