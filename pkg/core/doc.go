// Package core defines the shared language of the dark system.
//
// This package contains:
//   - Failure kinds and the classified Error type
//   - The RPC request envelope and error payload
//
// pkg/core imports ONLY stdlib. All other packages depend on core, not the reverse.
package core
