//go:build unit

package infra_test

import (
	"fmt"
	"log/slog"
	"testing"

	"cinema-booking/internal/infra"
	"cinema-booking/internal/pkg/errs"
	"cinema-booking/internal/usecase/shared"

	"github.com/stretchr/testify/assert"
)

func TestWrapRepoErr(t *testing.T) {
	cause := fmt.Errorf("driver failure")

	tests := []struct {
		name         string
		kind         infra.RepositoryErrorKind
		isNotFound   bool
		isConflict   bool
		expectedText string
	}{
		{name: "not found", kind: infra.KindNotFound, isNotFound: true, expectedText: "NOT_FOUND: booking lookup"},
		{name: "conflict", kind: infra.KindConflict, isConflict: true, expectedText: "CONFLICT: booking lookup"},
		{name: "db failure", kind: infra.KindDBFailure, expectedText: "DB_FAILURE: booking lookup"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := infra.WrapRepoErr(slog.Default(), tt.kind, "booking lookup", cause)

			assert.True(t, infra.IsKind(err, tt.kind))
			assert.Equal(t, tt.isNotFound, errs.Is(err, shared.ErrNotFound))
			assert.Equal(t, tt.isConflict, errs.Is(err, shared.ErrConflict))
			assert.ErrorIs(t, err, cause)
			assert.Contains(t, err.Error(), tt.expectedText)
		})
	}
}

func TestIsKind_SurvivesWrapping(t *testing.T) {
	err := infra.WrapRepoErr(slog.Default(), infra.KindConflict, "seat taken", nil)
	wrapped := errs.Wrap(err, "reserve")

	assert.True(t, infra.IsKind(wrapped, infra.KindConflict))
	assert.True(t, errs.Is(wrapped, shared.ErrConflict))
	assert.False(t, infra.IsKind(wrapped, infra.KindNotFound))
}
