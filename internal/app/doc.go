// Package app contains the application lifecycle: loading a workspace,
// resolving it, rendering the outcome and the long-running watch mode.
// It is decoupled from any specific entrypoint like a CLI or server.
package app
