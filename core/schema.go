package core

import (
	"context"
	"fmt"
)

// schemaStatements create the tables this service owns when missing. Career
// data lives in another service, so codigo_carrera carries no foreign key.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS estudiante (
	codigo_carrera     VARCHAR(8),
	registro_academico VARCHAR(10) PRIMARY KEY,
	nombre             VARCHAR(100) NOT NULL,
	apellido           VARCHAR(100) NOT NULL,
	ci                 VARCHAR(20) UNIQUE,
	correo             VARCHAR(100),
	contrasena         TEXT NOT NULL,
	telefono           VARCHAR(20),
	direccion          VARCHAR(150),
	estado_academico   VARCHAR(20) DEFAULT 'REGULAR'
)`,
	`CREATE TABLE IF NOT EXISTS pago (
	codigo_pago        VARCHAR(10) PRIMARY KEY,
	registro_academico VARCHAR(10) REFERENCES estudiante(registro_academico),
	descripcion        VARCHAR(100),
	monto              DECIMAL(10,2),
	fecha_pago         DATE DEFAULT CURRENT_DATE
)`,
	`CREATE TABLE IF NOT EXISTS bloqueo (
	codigo_bloqueo     VARCHAR(10) PRIMARY KEY,
	registro_academico VARCHAR(10) REFERENCES estudiante(registro_academico),
	descripcion        VARCHAR(100)
)`,
	`CREATE INDEX IF NOT EXISTS pago_registro_academico_idx ON pago (registro_academico)`,
	`CREATE INDEX IF NOT EXISTS bloqueo_registro_academico_idx ON bloqueo (registro_academico)`,
}

// EnsureSchema creates missing tables. Existing tables are left untouched.
func EnsureSchema(ctx context.Context, db pgDB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
