package callback

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codemoderun/codemode/internal/domain/codeerr"
	"github.com/codemoderun/codemode/internal/domain/toolmodel"
)

func echoFunc(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	return args, nil
}

func TestRegistryAddDuplicateRejected(t *testing.T) {
	reg := NewRegistry()
	id := toolmodel.FunctionId{Namespace: "Math", Name: "add"}
	require.NoError(t, reg.Add(id, echoFunc))

	err := reg.Add(id, echoFunc)
	require.Error(t, err)
	kind, ok := codeerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, codeerr.KindDuplicateTool, kind)
}

func TestRegistryCallNotFound(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Call(context.Background(), toolmodel.FunctionId{Namespace: "X", Name: "y"}, nil)
	require.Error(t, err)
	kind, _ := codeerr.KindOf(err)
	require.Equal(t, codeerr.KindToolNotFound, kind)
}

func TestRegistryCallWrapsFailure(t *testing.T) {
	reg := NewRegistry()
	id := toolmodel.FunctionId{Namespace: "Math", Name: "boom"}
	require.NoError(t, reg.Add(id, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		return nil, context.DeadlineExceeded
	}))
	_, err := reg.Call(context.Background(), id, nil)
	require.Error(t, err)
	kind, _ := codeerr.KindOf(err)
	require.Equal(t, codeerr.KindCallbackError, kind)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := toolmodel.FunctionId{Namespace: "N", Name: "f"}
			_ = reg.Has(id)
			_, _ = reg.Call(context.Background(), id, nil)
			_ = i
		}()
	}
	wg.Wait()
}

func TestRegistryRemove(t *testing.T) {
	reg := NewRegistry()
	id := toolmodel.FunctionId{Namespace: "Math", Name: "add"}
	require.NoError(t, reg.Add(id, echoFunc))
	require.True(t, reg.Has(id))
	require.True(t, reg.Remove(id))
	require.False(t, reg.Has(id))
	require.False(t, reg.Remove(id))
}
