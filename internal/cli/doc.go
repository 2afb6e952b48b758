// Package cli defines the terrane command tree and translates command
// outcomes into process exit codes.
package cli
