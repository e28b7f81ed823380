package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

type PaymentStore interface {
	List(ctx context.Context, skip, limit int) ([]Payment, error)
	ListByStudent(ctx context.Context, registroAcademico string) ([]Payment, error)
	Get(ctx context.Context, codigoPago string) (*Payment, error)
	Create(ctx context.Context, in PaymentCreate) (*Payment, error)
}

type PgPaymentStore struct {
	db  pgDB
	seq CodeSequence
}

// NewPgPaymentStore builds a payment store. seq may be nil, in which case
// codes are derived from the stored maximum alone.
func NewPgPaymentStore(db pgDB, seq CodeSequence) *PgPaymentStore {
	return &PgPaymentStore{db: db, seq: seq}
}

const paymentColumns = `codigo_pago, registro_academico, descripcion, monto, fecha_pago`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.CodigoPago, &p.RegistroAcademico, &p.Descripcion, &p.Monto, &p.FechaPago)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPayments(rows pgx.Rows) ([]Payment, error) {
	defer rows.Close()
	items := []Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

func paymentConstraint(owner string) constraintMapper {
	return func(code, constraint string) *AppError {
		switch code {
		case pgUniqueViolation:
			return PaymentAlreadyExists(map[string]any{"constraint": constraint})
		case pgForeignKeyViolation:
			return StudentNotFound(owner, "")
		}
		return nil
	}
}

func (r *PgPaymentStore) List(ctx context.Context, skip, limit int) ([]Payment, error) {
	if err := validateWindow(skip, limit); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM pago ORDER BY codigo_pago LIMIT $1 OFFSET $2`, limit, skip)
	if err != nil {
		return nil, translatePgError(err, "Error al obtener pagos", nil)
	}
	items, err := collectPayments(rows)
	if err != nil {
		return nil, translatePgError(err, "Error al obtener pagos", nil)
	}
	return items, nil
}

// ListByStudent returns every payment of a student, newest first. An unknown
// student simply has no payments.
func (r *PgPaymentStore) ListByStudent(ctx context.Context, registroAcademico string) ([]Payment, error) {
	if err := requireKey(registroAcademico, "El registro académico es requerido"); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM pago WHERE registro_academico=$1 ORDER BY fecha_pago DESC, codigo_pago DESC`, registroAcademico)
	if err != nil {
		return nil, translatePgError(err, "Error al obtener pagos del estudiante", nil)
	}
	items, err := collectPayments(rows)
	if err != nil {
		return nil, translatePgError(err, "Error al obtener pagos del estudiante", nil)
	}
	return items, nil
}

// Get returns the payment or PaymentNotFound without an identifier.
func (r *PgPaymentStore) Get(ctx context.Context, codigoPago string) (*Payment, error) {
	if err := requireKey(codigoPago, "El código de pago es requerido"); err != nil {
		return nil, err
	}
	p, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM pago WHERE codigo_pago=$1`, codigoPago))
	if err != nil {
		return nil, translatePgError(err, "Error al buscar pago", nil)
	}
	if p == nil {
		return nil, PaymentNotFound("")
	}
	return p, nil
}

// Create records a payment for an existing student under a freshly
// allocated code. A supplied codigo_pago is ignored.
func (r *PgPaymentStore) Create(ctx context.Context, in PaymentCreate) (*Payment, error) {
	owner := ""
	if in.RegistroAcademico != nil {
		owner = *in.RegistroAcademico
	}
	if err := requireKey(owner, "El registro académico es requerido"); err != nil {
		return nil, err
	}
	if in.Monto != nil && *in.Monto < 0 {
		return nil, NewValidationError("El monto no puede ser negativo")
	}

	var created *Payment
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := ensureStudentExists(ctx, tx, owner); err != nil {
			return err
		}
		code, err := nextCode(ctx, tx, r.seq, paymentCodes)
		if err != nil {
			return err
		}
		const q = `INSERT INTO pago (` + paymentColumns + `) VALUES ($1,$2,$3,$4,COALESCE($5, CURRENT_DATE))
RETURNING ` + paymentColumns
		created, err = scanPayment(tx.QueryRow(ctx, q, code, owner, in.Descripcion, in.Monto, in.FechaPago))
		return err
	})
	if err != nil {
		return nil, translatePgError(err, "Error al crear pago", paymentConstraint(owner))
	}
	logrus.WithFields(logrus.Fields{"codigo_pago": created.CodigoPago, "registro_academico": owner}).Info("payment created")
	return created, nil
}

// ensureStudentExists locks the owner row so it cannot be deleted while a
// dependent row is being inserted.
func ensureStudentExists(ctx context.Context, tx pgx.Tx, registroAcademico string) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM estudiante WHERE registro_academico=$1 FOR SHARE`, registroAcademico).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return StudentNotFound(registroAcademico, "")
	}
	return err
}

// codeFamily describes one family of prefixed sequential codes.
type codeFamily struct {
	name   string
	prefix string
	table  string
	column string
}

var (
	paymentCodes = codeFamily{name: "pago", prefix: "P", table: "pago", column: "codigo_pago"}
	blockCodes   = codeFamily{name: "bloqueo", prefix: "B", table: "bloqueo", column: "codigo_bloqueo"}
)

func (f codeFamily) format(n int64) string {
	return fmt.Sprintf("%s%05d", f.prefix, n)
}

// nextCode allocates the next code of f. The stored maximum floors the
// counter so codes inserted outside the service are never reissued.
func nextCode(ctx context.Context, tx pgx.Tx, seq CodeSequence, f codeFamily) (string, error) {
	q := fmt.Sprintf(`SELECT COALESCE(MAX(CAST(SUBSTRING(%[1]s FROM 2) AS BIGINT)), 0) FROM %[2]s WHERE %[1]s ~ '^%[3]s[0-9]+$'`,
		f.column, f.table, f.prefix)
	var floor int64
	if err := tx.QueryRow(ctx, q).Scan(&floor); err != nil {
		return "", err
	}
	if seq == nil {
		return f.format(floor + 1), nil
	}
	n, err := seq.Next(ctx, f.name, floor)
	if err != nil {
		return "", fmt.Errorf("allocate %s code: %w", f.name, err)
	}
	return f.format(n), nil
}
