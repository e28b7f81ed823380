package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFixture = `
estudiantes:
  - registro_academico: "218001234"
    nombre: Ana
    apellido: Perez
    ci: "7654321"
    codigo_carrera: INF
  - registro_academico: "218005678"
    nombre: Luis
    apellido: Rojas
    contrasena: propia
pagos:
  - codigo_pago: P00001
    registro_academico: "218001234"
    descripcion: Matrícula
    monto: 350.5
    fecha_pago: "2024-02-10"
bloqueos:
  - codigo_bloqueo: B00001
    registro_academico: "218005678"
    descripcion: Deuda biblioteca
`

func TestParseFixture(t *testing.T) {
	fx, err := ParseFixture(strings.NewReader(sampleFixture))
	require.NoError(t, err)
	require.Len(t, fx.Students, 2)
	require.Len(t, fx.Payments, 1)
	require.Len(t, fx.Blocks, 1)

	assert.Equal(t, "7654321", fx.Students[0].password())
	assert.Equal(t, "propia", fx.Students[1].password())
	require.NotNil(t, fx.Payments[0].Monto)
	assert.InDelta(t, 350.5, *fx.Payments[0].Monto, 0.001)

	d := fixtureDate(fx.Payments[0].FechaPago)
	assert.True(t, d.Valid)
	assert.Equal(t, "2024-02-10", d.Time.Format("2006-01-02"))
	assert.False(t, fixtureDate("").Valid)
}

func TestParseFixtureReportsEveryProblem(t *testing.T) {
	_, err := ParseFixture(strings.NewReader(`
estudiantes:
  - registro_academico: "1"
    nombre: A
  - registro_academico: "1"
    nombre: B
    apellido: C
    contrasena: x
pagos:
  - codigo_pago: P1
    registro_academico: "1"
    fecha_pago: 10/02/2024
`))
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "nombre and apellido are required")
	assert.Contains(t, msg, "contrasena or ci is required")
	assert.Contains(t, msg, "duplicate registro_academico")
	assert.Contains(t, msg, "fecha_pago")
}

func TestParseFixtureRejectsUnknownFields(t *testing.T) {
	_, err := ParseFixture(strings.NewReader("estudiantes:\n  - registro: x\n"))
	assert.Error(t, err)
}

func TestParseEmptyFixture(t *testing.T) {
	fx, err := ParseFixture(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, fx.Students)
}
