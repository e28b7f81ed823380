package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryStatusCodes(t *testing.T) {
	cases := map[Category]int{
		CategoryValidation:     http.StatusBadRequest,
		CategoryNotFound:       http.StatusNotFound,
		CategoryConflict:       http.StatusConflict,
		CategoryAuthentication: http.StatusUnauthorized,
		CategoryAuthorization:  http.StatusForbidden,
		CategoryPersistence:    http.StatusInternalServerError,
		Category(0):            http.StatusInternalServerError,
		Category(42):           http.StatusInternalServerError,
	}
	for cat, want := range cases {
		assert.Equal(t, want, cat.StatusCode(), "category %s", cat)
	}
}

func TestRefinementsKeepTheirCategory(t *testing.T) {
	cases := []struct {
		err  *AppError
		cat  Category
		code string
	}{
		{StudentNotFound("RA1", ""), CategoryNotFound, CodeStudentNotFound},
		{StudentAlreadyExists("ci", "123"), CategoryConflict, CodeStudentAlreadyExists},
		{PaymentNotFound("P00001"), CategoryNotFound, CodePaymentNotFound},
		{PaymentAlreadyExists(nil), CategoryConflict, CodePaymentAlreadyExists},
		{BlockNotFound(""), CategoryNotFound, CodeBlockNotFound},
		{InsufficientPermissions("x"), CategoryAuthorization, CodeInsufficientPermissions},
		{InvalidCredentials(), CategoryAuthentication, CodeInvalidCredentials},
		{InvalidToken(), CategoryAuthentication, CodeInvalidToken},
		{NewPersistenceError("db", errors.New("boom")), CategoryPersistence, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.cat, tc.err.Category, tc.err.Message)
		assert.Equal(t, tc.code, tc.err.Code, tc.err.Message)
		assert.Equal(t, tc.cat.StatusCode(), tc.err.StatusCode())
	}
}

func TestAppErrorBodyShape(t *testing.T) {
	raw, err := json.Marshal(StudentAlreadyExists("registro_academico", "RA0001").Body())
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	want := map[string]any{
		"message":    "Ya existe un estudiante con registro_academico: RA0001",
		"error_code": "ESTUDIANTE_ALREADY_EXISTS",
		"details":    map[string]any{"registro_academico": "RA0001"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestValidationErrorHasNullCode(t *testing.T) {
	raw, err := json.Marshal(NewValidationError("bad").Body())
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"bad","error_code":null,"details":{}}`, string(raw))
}

func TestNotFoundWithoutIdentifierHasEmptyDetails(t *testing.T) {
	assert.Empty(t, BlockNotFound("").Details)
	assert.Empty(t, PaymentNotFound("").Details)
	assert.Equal(t, map[string]any{"bloqueo_id": "B00001"}, BlockNotFound("B00001").Details)
}

func TestAppErrorUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("store: %w", NewPersistenceError("Error al crear estudiante", cause))
	assert.ErrorIs(t, err, cause)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, CategoryPersistence, appErr.Category)
	assert.NotContains(t, fmt.Sprint(appErr.Body()), "connection refused")
}

func TestHTTPErrorBody(t *testing.T) {
	plain := NewHTTPError(http.StatusNotFound, "Not Found").Body()
	code := "HTTP_404"
	assert.Equal(t, ErrorBody{Message: "Not Found", ErrorCode: &code, Details: map[string]any{}}, plain)

	structured := map[string]any{"message": "x", "error_code": "Y", "details": map[string]any{"a": 1}}
	assert.Equal(t, structured, NewHTTPError(http.StatusTeapot, structured).Body())
}

func TestInternalErrorBody(t *testing.T) {
	body := internalErrorBody()
	require.NotNil(t, body.ErrorCode)
	assert.Equal(t, CodeInternal, *body.ErrorCode)
	assert.Empty(t, body.Details)
}
