package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finscale/hierarchy-engine/pkg/apperrors"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not found",
			err:        apperrors.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "conflict",
			err:        apperrors.ErrConflict,
			wantStatus: http.StatusConflict,
			wantCode:   "conflict",
		},
		{
			name:       "unknown dialect",
			err:        apperrors.ErrUnknownDialect,
			wantStatus: http.StatusBadRequest,
			wantCode:   "unknown_dialect",
		},
		{
			name:       "invalid formula",
			err:        &apperrors.InvalidFormulaError{HierarchyID: "X", RuleIndex: -1, Reason: "empty"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "invalid_formula",
		},
		{
			name:       "circular dependency",
			err:        &apperrors.CircularDependencyError{Cycle: []string{"A", "B"}},
			wantStatus: http.StatusConflict,
			wantCode:   "circular_dependency",
		},
		{
			name:       "dangling reference",
			err:        &apperrors.DanglingReferenceError{HierarchyID: "X", MissingID: "Y"},
			wantStatus: http.StatusConflict,
			wantCode:   "dangling_reference",
		},
		{
			name:       "unsupported operation",
			err:        &apperrors.UnsupportedOperationError{Dialect: "mysql", Feature: "dynamic tables"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "unsupported_operation",
		},
		{
			name:       "injection screening",
			err:        apperrors.ErrInjectionUnsafe,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "unsafe_value",
		},
		{
			name:       "wrapped sentinel",
			err:        errors.Join(errors.New("loading"), apperrors.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "unrecognized",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := statusForError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}
