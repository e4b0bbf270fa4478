package testutil

import (
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

// requireContainers skips t under -short or when no container runtime is
// reachable.
func requireContainers(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("container tests disabled with -short")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}
