package repository

import (
	"context"
	"os"
	"testing"

	"github.com/AzielCF/az-aiwa/infrastructure/valkey"
	"github.com/google/uuid"
)

// newTestValkey connects to VALKEY_TEST_ADDRESS (localhost:6379 by default)
// under a throwaway prefix, or skips when no server answers.
func newTestValkey(t *testing.T) *valkey.Client {
	t.Helper()
	addr := os.Getenv("VALKEY_TEST_ADDRESS")
	if addr == "" {
		addr = valkey.DefaultAddress
	}
	vk, err := valkey.NewClient(valkey.Config{
		Address:   addr,
		KeyPrefix: "aiwa-test-" + uuid.NewString()[:8],
	})
	if err != nil {
		t.Skip("No valkey")
	}
	t.Cleanup(func() {
		_, _ = vk.DeleteMatching(context.Background(), vk.Key()+":*")
		vk.Close()
	})
	return vk
}
