package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Fixture is a YAML document of rows to load into an empty or partially
// seeded database.
type Fixture struct {
	Students []FixtureStudent `yaml:"estudiantes"`
	Payments []FixturePayment `yaml:"pagos"`
	Blocks   []FixtureBlock   `yaml:"bloqueos"`
}

// FixtureStudent uses the CI as password when Contrasena is empty.
type FixtureStudent struct {
	RegistroAcademico string  `yaml:"registro_academico"`
	CodigoCarrera     *string `yaml:"codigo_carrera"`
	Nombre            string  `yaml:"nombre"`
	Apellido          string  `yaml:"apellido"`
	CI                *string `yaml:"ci"`
	Correo            *string `yaml:"correo"`
	Telefono          *string `yaml:"telefono"`
	Direccion         *string `yaml:"direccion"`
	EstadoAcademico   *string `yaml:"estado_academico"`
	Contrasena        string  `yaml:"contrasena"`
}

func (s FixtureStudent) password() string {
	if s.Contrasena != "" {
		return s.Contrasena
	}
	if s.CI != nil {
		return *s.CI
	}
	return ""
}

type FixturePayment struct {
	CodigoPago        string   `yaml:"codigo_pago"`
	RegistroAcademico string   `yaml:"registro_academico"`
	Descripcion       *string  `yaml:"descripcion"`
	Monto             *float64 `yaml:"monto"`
	// FechaPago is YYYY-MM-DD; empty means the insertion date.
	FechaPago string `yaml:"fecha_pago"`
}

type FixtureBlock struct {
	CodigoBloqueo     string  `yaml:"codigo_bloqueo"`
	RegistroAcademico string  `yaml:"registro_academico"`
	Descripcion       *string `yaml:"descripcion"`
}

// SeedResult counts rows actually inserted; rows already present are skipped.
type SeedResult struct {
	Students int
	Payments int
	Blocks   int
}

// LoadFixture reads and validates a fixture file.
func LoadFixture(path string) (Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fixture{}, err
	}
	defer f.Close()
	return ParseFixture(f)
}

func ParseFixture(r io.Reader) (Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return Fixture{}, err
	}
	return fx, nil
}

// Validate reports every malformed row at once.
func (fx Fixture) Validate() error {
	var errs []error
	seen := map[string]bool{}
	for i, s := range fx.Students {
		if strings.TrimSpace(s.RegistroAcademico) == "" {
			errs = append(errs, fmt.Errorf("estudiantes[%d]: registro_academico is required", i))
			continue
		}
		if seen[s.RegistroAcademico] {
			errs = append(errs, fmt.Errorf("estudiantes[%d]: duplicate registro_academico %s", i, s.RegistroAcademico))
		}
		seen[s.RegistroAcademico] = true
		if s.Nombre == "" || s.Apellido == "" {
			errs = append(errs, fmt.Errorf("estudiantes[%d]: nombre and apellido are required", i))
		}
		if s.password() == "" {
			errs = append(errs, fmt.Errorf("estudiantes[%d]: contrasena or ci is required", i))
		}
	}
	for i, p := range fx.Payments {
		if p.CodigoPago == "" || p.RegistroAcademico == "" {
			errs = append(errs, fmt.Errorf("pagos[%d]: codigo_pago and registro_academico are required", i))
		}
		if p.FechaPago != "" {
			if _, err := time.Parse(time.DateOnly, p.FechaPago); err != nil {
				errs = append(errs, fmt.Errorf("pagos[%d]: fecha_pago: %w", i, err))
			}
		}
	}
	for i, b := range fx.Blocks {
		if b.CodigoBloqueo == "" || b.RegistroAcademico == "" {
			errs = append(errs, fmt.Errorf("bloqueos[%d]: codigo_bloqueo and registro_academico are required", i))
		}
	}
	return errors.Join(errs...)
}

func fixtureDate(s string) pgtype.Date {
	if s == "" {
		return pgtype.Date{}
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: t, Valid: true}
}

// SeedFixture inserts every fixture row that does not exist yet, in one
// transaction. It is idempotent.
func SeedFixture(ctx context.Context, db pgDB, fx Fixture) (SeedResult, error) {
	hashes := make([]string, len(fx.Students))
	for i, s := range fx.Students {
		h, err := HashPassword(s.password())
		if err != nil {
			return SeedResult{}, fmt.Errorf("hash password for %s: %w", s.RegistroAcademico, err)
		}
		hashes[i] = h
	}

	var res SeedResult
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		for i, s := range fx.Students {
			status := s.EstadoAcademico
			if status == nil {
				def := defaultAcademicStatus
				status = &def
			}
			tag, err := tx.Exec(ctx, `INSERT INTO estudiante (`+studentColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT DO NOTHING`,
				s.CodigoCarrera, s.RegistroAcademico, s.Nombre, s.Apellido, s.CI, s.Correo, s.Telefono,
				s.Direccion, status, hashes[i])
			if err != nil {
				return fmt.Errorf("insert estudiante %s: %w", s.RegistroAcademico, err)
			}
			res.Students += int(tag.RowsAffected())
		}
		for _, p := range fx.Payments {
			tag, err := tx.Exec(ctx, `INSERT INTO pago (`+paymentColumns+`) VALUES ($1,$2,$3,$4,COALESCE($5, CURRENT_DATE))
ON CONFLICT (codigo_pago) DO NOTHING`,
				p.CodigoPago, p.RegistroAcademico, p.Descripcion, p.Monto, fixtureDate(p.FechaPago))
			if err != nil {
				return fmt.Errorf("insert pago %s: %w", p.CodigoPago, err)
			}
			res.Payments += int(tag.RowsAffected())
		}
		for _, b := range fx.Blocks {
			tag, err := tx.Exec(ctx, `INSERT INTO bloqueo (`+blockColumns+`) VALUES ($1,$2,$3)
ON CONFLICT (codigo_bloqueo) DO NOTHING`,
				b.CodigoBloqueo, b.RegistroAcademico, b.Descripcion)
			if err != nil {
				return fmt.Errorf("insert bloqueo %s: %w", b.CodigoBloqueo, err)
			}
			res.Blocks += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	logrus.WithFields(logrus.Fields{
		"estudiantes": res.Students,
		"pagos":       res.Payments,
		"bloqueos":    res.Blocks,
	}).Info("fixture seeded")
	return res, nil
}

// RehashPasswordsFromCI resets every student that has a CI to a fresh bcrypt
// hash of that CI. All updates commit together or not at all.
func RehashPasswordsFromCI(ctx context.Context, db pgDB) (int, error) {
	updated := 0
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT registro_academico, ci FROM estudiante WHERE ci IS NOT NULL AND ci <> '' ORDER BY registro_academico FOR UPDATE`)
		if err != nil {
			return err
		}
		type target struct{ id, ci string }
		targets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (target, error) {
			var t target
			err := row.Scan(&t.id, &t.ci)
			return t, err
		})
		if err != nil {
			return err
		}
		for _, t := range targets {
			hash, err := HashPassword(t.ci)
			if err != nil {
				return fmt.Errorf("hash password for %s: %w", t.id, err)
			}
			if _, err := tx.Exec(ctx, `UPDATE estudiante SET contrasena=$1 WHERE registro_academico=$2`, hash, t.id); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	logrus.WithField("count", updated).Info("passwords rehashed from ci")
	return updated, nil
}
