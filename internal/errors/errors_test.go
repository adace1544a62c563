package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		name         string
		code         string
		wantCategory Category
		wantSeverity Severity
	}{
		{
			name:         "config code",
			code:         ErrCodeConfigInvalid,
			wantCategory: CategoryConfig,
			wantSeverity: SeverityError,
		},
		{
			name:         "index not found is IO",
			code:         ErrCodeIndexNotFound,
			wantCategory: CategoryIO,
			wantSeverity: SeverityError,
		},
		{
			name:         "corrupt index is fatal",
			code:         ErrCodeIndexCorrupt,
			wantCategory: CategoryIO,
			wantSeverity: SeverityFatal,
		},
		{
			name:         "reopen without open is lifecycle",
			code:         ErrCodeNothingToReopen,
			wantCategory: CategoryLifecycle,
			wantSeverity: SeverityError,
		},
		{
			name:         "validation code",
			code:         ErrCodeInvalidPath,
			wantCategory: CategoryValidation,
			wantSeverity: SeverityError,
		},
		{
			name:         "history storage is a warning",
			code:         ErrCodeHistoryStorage,
			wantCategory: CategoryIO,
			wantSeverity: SeverityWarning,
		},
		{
			name:         "internal code",
			code:         ErrCodeInternal,
			wantCategory: CategoryInternal,
			wantSeverity: SeverityError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestError_Format(t *testing.T) {
	err := New(ErrCodeIndexNotFound, "no index at /tmp/idx", nil)
	assert.Equal(t, "[ERR_201_INDEX_NOT_FOUND] no index at /tmp/idx", err.Error())
}

func TestWrap(t *testing.T) {
	t.Run("wraps cause and keeps chain", func(t *testing.T) {
		cause := fmt.Errorf("disk exploded")
		err := Wrap(ErrCodeIndexOpen, cause)
		require.NotNil(t, err)
		assert.Equal(t, "disk exploded", err.Message)
		assert.True(t, stderrors.Is(err, cause))
	})

	t.Run("nil cause yields nil", func(t *testing.T) {
		assert.Nil(t, Wrap(ErrCodeIndexOpen, nil))
	})
}

func TestIs_MatchesByCode(t *testing.T) {
	a := New(ErrCodeNoSession, "no session", nil)
	b := New(ErrCodeNoSession, "different message", nil)
	c := New(ErrCodeIndexNotFound, "no session", nil)

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, c))
}

func TestWithDetailAndSuggestion(t *testing.T) {
	err := New(ErrCodeUnknownDirImpl, "no such implementation", nil).
		WithDetail("impl", "ramdisk").
		WithSuggestion("use one of: scorch, mem")

	assert.Equal(t, "ramdisk", err.Details["impl"])
	assert.Equal(t, "use one of: scorch, mem", err.Suggestion)
}

func TestHelpers(t *testing.T) {
	fatal := New(ErrCodeIndexCorrupt, "bad meta", nil)
	assert.True(t, IsFatal(fatal))
	assert.False(t, IsFatal(New(ErrCodeInvalidInput, "x", nil)))
	assert.False(t, IsFatal(nil))

	assert.Equal(t, ErrCodeIndexCorrupt, GetCode(fatal))
	assert.Equal(t, "", GetCode(fmt.Errorf("plain")))
	assert.Equal(t, CategoryIO, GetCategory(fatal))
	assert.Equal(t, Category(""), GetCategory(fmt.Errorf("plain")))
}
