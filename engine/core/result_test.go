package core

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	t.Run("Should carry value when ok", func(t *testing.T) {
		r := Ok(42)

		require.True(t, r.IsOk())
		assert.Equal(t, 42, r.Value())
		assert.Nil(t, r.Error())
		v, err := r.Unpack()
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("Should carry kind and message when failed", func(t *testing.T) {
		r := Err[string](KindNoTranscript, "no captions available")

		require.False(t, r.IsOk())
		assert.Equal(t, KindNoTranscript, r.Kind())
		assert.Equal(t, "no captions available", r.Error().Message)
		_, err := r.Unpack()
		assert.EqualError(t, err, "no_transcript: no captions available")
	})

	t.Run("Should keep cause reachable through errors.Is", func(t *testing.T) {
		cause := errors.New("connection refused")
		r := Wrap[int](KindUnavailable, "store down", cause)

		_, err := r.Unpack()

		assert.ErrorIs(t, err, cause)
		assert.ErrorIs(t, err, &Error{Kind: KindUnavailable})
		assert.NotErrorIs(t, err, &Error{Kind: KindNotFound})
		assert.Equal(t, KindUnavailable, KindOf(err))
	})

	t.Run("Should convert plain errors to internal kind", func(t *testing.T) {
		r := FromError[int](errors.New("boom"))

		assert.Equal(t, KindInternal, r.Kind())
		assert.Equal(t, KindInternal, KindOf(errors.New("other")))
	})

	t.Run("Should preserve kind of wrapped core errors", func(t *testing.T) {
		inner := NewError(KindNotFound, "video missing", nil)
		r := FromError[int](errors.Join(errors.New("lookup"), inner))

		assert.Equal(t, KindNotFound, r.Kind())
	})
}

func TestProblemFrom(t *testing.T) {
	t.Run("Should map kinds to statuses", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, StatusFor(KindInvalidInput))
		assert.Equal(t, http.StatusNotFound, StatusFor(KindNotFound))
		assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(KindNoTranscript))
		assert.Equal(t, http.StatusServiceUnavailable, StatusFor(KindUnavailable))
		assert.Equal(t, http.StatusInternalServerError, StatusFor(KindIndexing))
	})

	t.Run("Should hide internal error details", func(t *testing.T) {
		p := ProblemFrom(NewError(KindInternal, "pq: password authentication failed", nil))

		assert.Equal(t, http.StatusInternalServerError, p.Status)
		assert.Equal(t, "internal error", p.Detail)
	})

	t.Run("Should expose user-facing messages", func(t *testing.T) {
		p := ProblemFrom(NewError(KindNoTranscript, "video has no captions", nil))

		assert.Equal(t, "video has no captions", p.Detail)
		assert.Equal(t, KindNoTranscript, p.Code)
		assert.Equal(t, "Unprocessable Entity", p.Title)
	})
}
