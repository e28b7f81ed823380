package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslatePgError(t *testing.T) {
	assert.NoError(t, translatePgError(nil, "x", nil))

	// Taxonomy errors raised inside a transaction pass through untouched.
	nf := StudentNotFound("RA1", "")
	assert.Same(t, nf, translatePgError(fmt.Errorf("tx: %w", nf), "x", nil))

	unique := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "estudiante_ci_key"}
	err := translatePgError(unique, "Error al crear estudiante", studentConstraint("RA1", strPtr("123")))
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, CodeStudentAlreadyExists, appErr.Code)
	assert.Equal(t, map[string]any{"ci": "123"}, appErr.Details)
	assert.ErrorIs(t, err, unique)

	pkey := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "estudiante_pkey"}
	require.ErrorAs(t, translatePgError(pkey, "x", studentConstraint("RA1", nil)), &appErr)
	assert.Equal(t, map[string]any{"registro_academico": "RA1"}, appErr.Details)

	fk := &pgconn.PgError{Code: pgForeignKeyViolation, ConstraintName: "pago_registro_academico_fkey"}
	require.ErrorAs(t, translatePgError(fk, "x", paymentConstraint("RA9")), &appErr)
	assert.Equal(t, CodeStudentNotFound, appErr.Code)

	notNull := &pgconn.PgError{Code: pgNotNullViolation, ColumnName: "nombre"}
	require.ErrorAs(t, translatePgError(notNull, "x", nil), &appErr)
	assert.Equal(t, CategoryValidation, appErr.Category)

	raw := errors.New("connection reset by peer")
	require.ErrorAs(t, translatePgError(raw, "Error al obtener pagos", nil), &appErr)
	assert.Equal(t, CategoryPersistence, appErr.Category)
	assert.Equal(t, "Error al obtener pagos", appErr.Message)
	assert.ErrorIs(t, appErr, raw)
}

func TestValidateWindow(t *testing.T) {
	assert.NoError(t, validateWindow(0, 1))
	assert.NoError(t, validateWindow(10, 1000))
	for _, w := range [][2]int{{-1, 10}, {0, 0}, {0, 1001}} {
		err := validateWindow(w[0], w[1])
		var appErr *AppError
		require.ErrorAs(t, err, &appErr, "%v", w)
		assert.Equal(t, CategoryValidation, appErr.Category)
	}
}

func TestRequireKey(t *testing.T) {
	assert.NoError(t, requireKey("RA1", "x"))
	assert.Error(t, requireKey("   ", "x"))
}
