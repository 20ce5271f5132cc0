// Package testutil provides testing utilities for the oauth-sessions library:
// an in-memory request context, a controllable time source and random test
// data generators.
package testutil
