package errors_test

import (
	stderrors "errors"
	"testing"

	"vantage/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheErrorWrapping(t *testing.T) {
	cause := stderrors.New("disk full")
	err := errors.NewCacheError("writing blob", errors.CacheCorrupt, cause)

	assert.Equal(t, "writing blob: disk full", err.Error())
	assert.Equal(t, errors.CacheCorrupt, err.Kind())
	assert.True(t, errors.Is(err, cause))
}

func TestToolErrorIncludesName(t *testing.T) {
	err := errors.NewToolError("executable not found", "pyflakes", errors.ToolMissing, nil)
	assert.Equal(t, "pyflakes: executable not found", err.Error())
	assert.Equal(t, "pyflakes", err.Tool())
}

func TestKindOf(t *testing.T) {
	require.Equal(t, errors.Unknown, errors.KindOf(stderrors.New("plain")))

	err := errors.NewWorkerError("child exited", errors.WorkerCrash, nil)
	assert.Equal(t, errors.WorkerCrash, errors.KindOf(err))

	wrapped := stderrors.Join(stderrors.New("outer"), err)
	assert.Equal(t, errors.WorkerCrash, errors.KindOf(wrapped))
}
