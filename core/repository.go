package core

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

// StudentStore defines persistence operations for students. Every method
// returns taxonomy failures; lookups return (nil, nil) when nothing matches.
type StudentStore interface {
	CredentialStore
	FindByCI(ctx context.Context, ci string) (*Student, error)
	List(ctx context.Context, skip, limit int) ([]Student, error)
	Create(ctx context.Context, in StudentCreate) (*Student, error)
	Update(ctx context.Context, registroAcademico string, patch StudentPatch) (*Student, error)
	Delete(ctx context.Context, registroAcademico string) error
}

// PgStudentStore implements StudentStore using pgx.
type PgStudentStore struct {
	db pgDB
}

func NewPgStudentStore(db pgDB) *PgStudentStore {
	return &PgStudentStore{db: db}
}

const studentColumns = `codigo_carrera, registro_academico, nombre, apellido, ci, correo, telefono, direccion, estado_academico, contrasena`

func scanStudent(row pgx.Row) (*Student, error) {
	var s Student
	err := row.Scan(&s.CodigoCarrera, &s.RegistroAcademico, &s.Nombre, &s.Apellido, &s.CI,
		&s.Correo, &s.Telefono, &s.Direccion, &s.EstadoAcademico, &s.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// studentConstraint maps unique violations on estudiante to conflicts.
func studentConstraint(registroAcademico string, ci *string) constraintMapper {
	return func(code, constraint string) *AppError {
		if code != pgUniqueViolation {
			return nil
		}
		switch {
		case strings.Contains(constraint, "_ci"):
			v := ""
			if ci != nil {
				v = *ci
			}
			return StudentAlreadyExists("ci", v)
		case strings.Contains(constraint, "pkey"), strings.Contains(constraint, "registro_academico"):
			return StudentAlreadyExists("registro_academico", registroAcademico)
		}
		return nil
	}
}

func (r *PgStudentStore) FindByAcademicID(ctx context.Context, registroAcademico string) (*Student, error) {
	if err := requireKey(registroAcademico, "El registro académico es requerido"); err != nil {
		return nil, err
	}
	const q = `SELECT ` + studentColumns + ` FROM estudiante WHERE registro_academico=$1`
	s, err := scanStudent(r.db.QueryRow(ctx, q, registroAcademico))
	if err != nil {
		return nil, translatePgError(err, "Error al buscar estudiante", nil)
	}
	return s, nil
}

func (r *PgStudentStore) FindByCI(ctx context.Context, ci string) (*Student, error) {
	if err := requireKey(ci, "El CI es requerido"); err != nil {
		return nil, err
	}
	const q = `SELECT ` + studentColumns + ` FROM estudiante WHERE ci=$1`
	s, err := scanStudent(r.db.QueryRow(ctx, q, ci))
	if err != nil {
		return nil, translatePgError(err, "Error al buscar estudiante por CI", nil)
	}
	return s, nil
}

// List returns a window of students ordered by academic id.
func (r *PgStudentStore) List(ctx context.Context, skip, limit int) ([]Student, error) {
	if err := validateWindow(skip, limit); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+studentColumns+` FROM estudiante ORDER BY registro_academico LIMIT $1 OFFSET $2`, limit, skip)
	if err != nil {
		return nil, translatePgError(err, "Error al obtener estudiantes", nil)
	}
	defer rows.Close()
	items := make([]Student, 0, limit)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, translatePgError(err, "Error al obtener estudiantes", nil)
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, translatePgError(err, "Error al obtener estudiantes", nil)
	}
	return items, nil
}

// Create inserts a student after checking both unique keys.
func (r *PgStudentStore) Create(ctx context.Context, in StudentCreate) (*Student, error) {
	if err := requireKey(in.RegistroAcademico, "El registro académico es requerido"); err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Contrasena)
	if err != nil {
		return nil, err
	}
	s := Student{
		CodigoCarrera:     in.CodigoCarrera,
		RegistroAcademico: in.RegistroAcademico,
		Nombre:            in.Nombre,
		Apellido:          in.Apellido,
		CI:                in.CI,
		Correo:            in.Correo,
		Telefono:          in.Telefono,
		Direccion:         in.Direccion,
		EstadoAcademico:   in.EstadoAcademico,
		PasswordHash:      hash,
	}
	if s.EstadoAcademico == nil {
		status := defaultAcademicStatus
		s.EstadoAcademico = &status
	}

	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		existing, err := scanStudent(tx.QueryRow(ctx, `SELECT `+studentColumns+` FROM estudiante WHERE registro_academico=$1`, s.RegistroAcademico))
		if err != nil {
			return err
		}
		if existing != nil {
			return StudentAlreadyExists("registro_academico", s.RegistroAcademico)
		}
		if s.CI != nil && *s.CI != "" {
			byCI, err := scanStudent(tx.QueryRow(ctx, `SELECT `+studentColumns+` FROM estudiante WHERE ci=$1`, *s.CI))
			if err != nil {
				return err
			}
			if byCI != nil {
				return StudentAlreadyExists("ci", *s.CI)
			}
		}
		const q = `INSERT INTO estudiante (` + studentColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
		_, err = tx.Exec(ctx, q, s.CodigoCarrera, s.RegistroAcademico, s.Nombre, s.Apellido, s.CI,
			s.Correo, s.Telefono, s.Direccion, s.EstadoAcademico, s.PasswordHash)
		return err
	})
	if err != nil {
		return nil, translatePgError(err, "Error al crear estudiante", studentConstraint(s.RegistroAcademico, s.CI))
	}
	logrus.WithField("registro_academico", s.RegistroAcademico).Info("student created")
	return &s, nil
}

// Update applies patch to an existing student inside one transaction. A
// password in the patch is hashed before it is stored.
func (r *PgStudentStore) Update(ctx context.Context, registroAcademico string, patch StudentPatch) (*Student, error) {
	if err := requireKey(registroAcademico, "El registro académico es requerido"); err != nil {
		return nil, err
	}
	if patch.Contrasena.Value != nil {
		hash, err := HashPassword(*patch.Contrasena.Value)
		if err != nil {
			return nil, err
		}
		patch.Contrasena = Some(hash)
	}

	var updated *Student
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		s, err := scanStudent(tx.QueryRow(ctx, `SELECT `+studentColumns+` FROM estudiante WHERE registro_academico=$1 FOR UPDATE`, registroAcademico))
		if err != nil {
			return err
		}
		if s == nil {
			return StudentNotFound(registroAcademico, "")
		}
		if patch.CI.Value != nil && *patch.CI.Value != "" {
			var one int
			err := tx.QueryRow(ctx, `SELECT 1 FROM estudiante WHERE ci=$1 AND registro_academico<>$2`, *patch.CI.Value, registroAcademico).Scan(&one)
			if err == nil {
				return StudentAlreadyExists("ci", *patch.CI.Value)
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
		}
		if err := patch.ApplyTo(s); err != nil {
			return err
		}
		const q = `UPDATE estudiante SET codigo_carrera=$1, nombre=$2, apellido=$3, ci=$4, correo=$5, telefono=$6,
	direccion=$7, estado_academico=$8, contrasena=$9 WHERE registro_academico=$10`
		if _, err := tx.Exec(ctx, q, s.CodigoCarrera, s.Nombre, s.Apellido, s.CI, s.Correo, s.Telefono,
			s.Direccion, s.EstadoAcademico, s.PasswordHash, s.RegistroAcademico); err != nil {
			return err
		}
		updated = s
		return nil
	})
	if err != nil {
		return nil, translatePgError(err, "Error al actualizar estudiante", studentConstraint(registroAcademico, patch.CI.Value))
	}
	return updated, nil
}

// Delete removes a student. Payments and blocks that referenced the student
// are kept with their owner cleared.
func (r *PgStudentStore) Delete(ctx context.Context, registroAcademico string) error {
	if err := requireKey(registroAcademico, "El registro académico es requerido"); err != nil {
		return err
	}
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE pago SET registro_academico=NULL WHERE registro_academico=$1`, registroAcademico); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE bloqueo SET registro_academico=NULL WHERE registro_academico=$1`, registroAcademico); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM estudiante WHERE registro_academico=$1`, registroAcademico)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return StudentNotFound(registroAcademico, "")
		}
		return nil
	})
	return translatePgError(err, "Error al eliminar estudiante", nil)
}
