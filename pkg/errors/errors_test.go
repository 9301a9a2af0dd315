package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCode(t *testing.T) {
	t.Parallel()

	assert.True(t, IsCode(ErrNoMatch, CodeNoMatch))
	assert.False(t, IsCode(ErrNoMatch, CodeInvalidParam))
	assert.False(t, IsCode(errors.New("plain"), CodeNoMatch))

	wrapped := fmt.Errorf("outer: %w", ErrFetchFailed.WithDetail("404"))
	assert.True(t, IsCode(wrapped, CodeFetchFailed))
}

func TestIsBadInput(t *testing.T) {
	t.Parallel()

	assert.True(t, IsBadInput(ErrInvalidParam))
	assert.True(t, IsBadInput(ErrFetchFailed))
	assert.True(t, IsBadInput(ErrExtractionFailed))
	assert.True(t, IsBadInput(ErrLLMCallFailed), "model failures are acked, not redelivered")

	assert.False(t, IsBadInput(ErrEmbeddingFailed))
	assert.False(t, IsBadInput(ErrIndexWrite))
	assert.False(t, IsBadInput(ErrStream))
	assert.False(t, IsBadInput(errors.New("plain")))
}

func TestWithDetailClones(t *testing.T) {
	t.Parallel()

	detailed := ErrNoMatch.WithDetail("extra")
	assert.Equal(t, "extra", detailed.Detail)
	assert.Empty(t, ErrNoMatch.Detail, "predefined error must not be mutated")
	assert.Equal(t, ErrNoMatch.Code, detailed.Code)
}

func TestHTTPStatusMapping(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusBadRequest, ErrInvalidParam.HTTPStatus)
	assert.Equal(t, http.StatusNotFound, ErrNoMatch.HTTPStatus)
	assert.Equal(t, http.StatusServiceUnavailable, ErrServiceUnavailable.HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, ErrLLMCallFailed.HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, ErrIndexConfig.HTTPStatus)
}

func TestAsAppError(t *testing.T) {
	t.Parallel()

	appErr := AsAppError(errors.New("boom"))
	assert.Equal(t, CodeUnknown, appErr.Code)

	same := AsAppError(ErrNoMatch)
	assert.Equal(t, CodeNoMatch, same.Code)
}

func TestErrorFormat(t *testing.T) {
	t.Parallel()

	base := ErrFetchFailed
	assert.Contains(t, base.Error(), string(CodeFetchFailed))

	withErr := ErrFetchFailed.WithError(errors.New("dial timeout"))
	assert.Contains(t, withErr.Error(), "dial timeout")
	assert.Equal(t, "dial timeout", errors.Unwrap(withErr).Error())
}
