package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetadataFor_KnownAndUnknownCodes(t *testing.T) {
	require.Equal(t, http.StatusNotFound, MetadataFor(CodeNotFound).HTTPStatus)
	require.Equal(t, http.StatusBadRequest, MetadataFor(CodeInsufficientStock).HTTPStatus)
	require.Equal(t, http.StatusInternalServerError, MetadataFor(Code("NOPE")).HTTPStatus)
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("db down")
	err := Wrap(CodeDependency, cause, "load user")

	require.ErrorIs(t, err, cause)
	require.Equal(t, CodeDependency, err.Code())
	require.Equal(t, "DEPENDENCY_ERROR: load user", err.Error())
}

func TestAs_FindsTypedErrorInChain(t *testing.T) {
	inner := New(CodeConflict, "email already registered")
	wrapped := fmt.Errorf("register: %w", inner)

	typed := As(wrapped)
	require.NotNil(t, typed)
	require.Equal(t, CodeConflict, typed.Code())

	require.Nil(t, As(fmt.Errorf("plain")))
}

func TestInsufficientStock_EmbedsAvailable(t *testing.T) {
	err := InsufficientStock(3)

	require.Equal(t, CodeInsufficientStock, err.Code())
	require.Contains(t, err.Message(), "available: 3")

	details, ok := err.Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, 3, details["available"])
}

func TestDump_CollectsChain(t *testing.T) {
	err := Wrap(CodeInternal, fmt.Errorf("root"), "wrapped")
	dump := Dump(err)

	require.Equal(t, CodeInternal, dump.Code)
	require.Len(t, dump.Chain, 2)
}
