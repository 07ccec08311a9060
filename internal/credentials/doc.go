// Package credentials persists the user's OAuth token pair.
//
// A [Store] is injected into the request client and the authorizer; nothing in spotctl reads tokens from ambient state.
//
// Backends:
//   - [FileStore]: JSON document written atomically (temp file + rename) with 0600 permissions
//   - [KeyringStore]: OS-native credential storage (macOS Keychain, Windows Credential Manager, Secret Service)
//   - [SQLiteStore]: key/value rows in the application database
//   - [MemoryStore]: process-local, used by tests and ephemeral runs
//
// Every backend keys the two tokens by [AccessTokenKey] and [RefreshTokenKey] and is safe for concurrent use.
package credentials
