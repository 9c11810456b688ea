package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(42).String())
}

func TestWrap_NilError(t *testing.T) {
	assert.NoError(t, Wrap(nil, "dispatch", "HandleWrite", "decode"))
	assert.NoError(t, WrapTransient(nil, "a", "b", "c"))
	assert.NoError(t, WrapInvalid(nil, "a", "b", "c"))
	assert.NoError(t, WrapFatal(nil, "a", "b", "c"))
}

func TestWrap_Format(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(base, "peripheral", "Start", "advertising")
	require.Error(t, err)
	assert.Equal(t, "peripheral.Start: advertising failed: boom", err.Error())
	assert.True(t, stderrors.Is(err, base))
}

func TestWrapInvalid_Classification(t *testing.T) {
	err := WrapInvalid(ErrParsingFailed, "dispatch", "HandleWrite", "pose json")
	require.Error(t, err)

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, ErrorInvalid, ce.Class)
	assert.Equal(t, "dispatch", ce.Component)
	assert.True(t, stderrors.Is(err, ErrParsingFailed))
	assert.True(t, IsInvalid(err))
	assert.False(t, IsTransient(err))
	assert.False(t, IsFatal(err))
}

func TestWrapTransient_Classification(t *testing.T) {
	err := WrapTransient(ErrTransportUnavailable, "ble", "Start", "adapter enable")
	assert.True(t, IsTransient(err))
	assert.Equal(t, ErrorTransient, Classify(err))
}

func TestWrapFatal_Classification(t *testing.T) {
	err := WrapFatal(stderrors.New("unrecoverable"), "heartbeat", "Start", "ticker")
	assert.True(t, IsFatal(err))
	assert.Equal(t, ErrorFatal, Classify(err))
}

func TestIsTransient_StandardErrors(t *testing.T) {
	assert.True(t, IsTransient(ErrTransportUnavailable))
	assert.True(t, IsTransient(ErrConnectionLost))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(fmt.Errorf("dial: connection refused")))
	assert.False(t, IsTransient(nil))
}

func TestIsInvalid_StandardErrors(t *testing.T) {
	assert.True(t, IsInvalid(ErrInvalidUTF8))
	assert.True(t, IsInvalid(ErrAuthMalformed))
	assert.True(t, IsInvalid(ErrInvalidConfig))
	assert.False(t, IsInvalid(ErrAuthMismatch))
	assert.False(t, IsInvalid(nil))
}

func TestClassify_Defaults(t *testing.T) {
	// Unknown errors default to transient so callers may retry
	assert.Equal(t, ErrorTransient, Classify(stderrors.New("mystery")))
	assert.Equal(t, ErrorTransient, Classify(nil))
	assert.Equal(t, ErrorInvalid, Classify(ErrParsingFailed))
}

func TestClassifiedError_Unwrap(t *testing.T) {
	base := stderrors.New("inner")
	err := WrapTransient(base, "natspub", "Emit", "publish")

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.True(t, stderrors.Is(ce.Unwrap(), base))
	assert.NotEmpty(t, ce.Error())
}
