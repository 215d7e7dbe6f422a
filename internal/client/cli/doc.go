// Package cli provides the interactive Willnicht terminal client.
//
// It wires configuration, the local cache file, the remote client and the
// services, then runs a REPL. Photos are queued with add, evaluated with
// analyze and the results are kept on the device and, when signed in, in
// the account. A background watcher pings the backend and switches between
// online and offline mode.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
