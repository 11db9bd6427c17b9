package store_test

import (
	"testing"

	"github.com/GriffinCanCode/AgentOS/push/internal/store"
	"github.com/GriffinCanCode/AgentOS/push/internal/store/storetest"
)

func TestMemoryTree(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Tree {
		return store.NewMemoryTree()
	})
}
