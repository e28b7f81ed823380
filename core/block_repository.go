package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

type BlockStore interface {
	List(ctx context.Context, skip, limit int) ([]Block, error)
	ListByStudent(ctx context.Context, registroAcademico string) ([]Block, error)
	Get(ctx context.Context, codigoBloqueo string) (*Block, error)
	Create(ctx context.Context, in BlockCreate) (*Block, error)
	Update(ctx context.Context, codigoBloqueo string, patch BlockPatch) (*Block, error)
}

type PgBlockStore struct {
	db  pgDB
	seq CodeSequence
}

func NewPgBlockStore(db pgDB, seq CodeSequence) *PgBlockStore {
	return &PgBlockStore{db: db, seq: seq}
}

const blockColumns = `codigo_bloqueo, registro_academico, descripcion`

func scanBlock(row pgx.Row) (*Block, error) {
	var b Block
	err := row.Scan(&b.CodigoBloqueo, &b.RegistroAcademico, &b.Descripcion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBlocks(rows pgx.Rows) ([]Block, error) {
	defer rows.Close()
	items := []Block{}
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *b)
	}
	return items, rows.Err()
}

func blockConstraint(owner string) constraintMapper {
	return func(code, _ string) *AppError {
		if code == pgForeignKeyViolation {
			return StudentNotFound(owner, "")
		}
		return nil
	}
}

func (r *PgBlockStore) List(ctx context.Context, skip, limit int) ([]Block, error) {
	if err := validateWindow(skip, limit); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+blockColumns+` FROM bloqueo ORDER BY codigo_bloqueo LIMIT $1 OFFSET $2`, limit, skip)
	if err != nil {
		return nil, translatePgError(err, "Error al obtener bloqueos", nil)
	}
	items, err := collectBlocks(rows)
	if err != nil {
		return nil, translatePgError(err, "Error al obtener bloqueos", nil)
	}
	return items, nil
}

func (r *PgBlockStore) ListByStudent(ctx context.Context, registroAcademico string) ([]Block, error) {
	if err := requireKey(registroAcademico, "El registro académico es requerido"); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+blockColumns+` FROM bloqueo WHERE registro_academico=$1 ORDER BY codigo_bloqueo`, registroAcademico)
	if err != nil {
		return nil, translatePgError(err, "Error al obtener bloqueos del estudiante", nil)
	}
	items, err := collectBlocks(rows)
	if err != nil {
		return nil, translatePgError(err, "Error al obtener bloqueos del estudiante", nil)
	}
	return items, nil
}

// Get returns the block or BlockNotFound. The failure carries no identifier.
func (r *PgBlockStore) Get(ctx context.Context, codigoBloqueo string) (*Block, error) {
	if err := requireKey(codigoBloqueo, "El código de bloqueo es requerido"); err != nil {
		return nil, err
	}
	b, err := scanBlock(r.db.QueryRow(ctx, `SELECT `+blockColumns+` FROM bloqueo WHERE codigo_bloqueo=$1`, codigoBloqueo))
	if err != nil {
		return nil, translatePgError(err, "Error al buscar bloqueo", nil)
	}
	if b == nil {
		return nil, BlockNotFound("")
	}
	return b, nil
}

func (r *PgBlockStore) Create(ctx context.Context, in BlockCreate) (*Block, error) {
	owner := ""
	if in.RegistroAcademico != nil {
		owner = *in.RegistroAcademico
	}
	if err := requireKey(owner, "El registro académico es requerido"); err != nil {
		return nil, err
	}

	var created *Block
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := ensureStudentExists(ctx, tx, owner); err != nil {
			return err
		}
		code, err := nextCode(ctx, tx, r.seq, blockCodes)
		if err != nil {
			return err
		}
		const q = `INSERT INTO bloqueo (` + blockColumns + `) VALUES ($1,$2,$3) RETURNING ` + blockColumns
		created, err = scanBlock(tx.QueryRow(ctx, q, code, owner, in.Descripcion))
		return err
	})
	if err != nil {
		return nil, translatePgError(err, "Error al crear bloqueo", blockConstraint(owner))
	}
	return created, nil
}

// Update applies patch to the block. Moving a block to another student
// requires that student to exist.
func (r *PgBlockStore) Update(ctx context.Context, codigoBloqueo string, patch BlockPatch) (*Block, error) {
	if err := requireKey(codigoBloqueo, "El código de bloqueo es requerido"); err != nil {
		return nil, err
	}
	owner := ""
	if patch.RegistroAcademico.Value != nil {
		owner = *patch.RegistroAcademico.Value
	}

	var updated *Block
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		b, err := scanBlock(tx.QueryRow(ctx, `SELECT `+blockColumns+` FROM bloqueo WHERE codigo_bloqueo=$1 FOR UPDATE`, codigoBloqueo))
		if err != nil {
			return err
		}
		if b == nil {
			return BlockNotFound("")
		}
		if owner != "" {
			if err := ensureStudentExists(ctx, tx, owner); err != nil {
				return err
			}
		}
		patch.ApplyTo(b)
		if _, err := tx.Exec(ctx, `UPDATE bloqueo SET registro_academico=$1, descripcion=$2 WHERE codigo_bloqueo=$3`,
			b.RegistroAcademico, b.Descripcion, b.CodigoBloqueo); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, translatePgError(err, "Error al actualizar bloqueo", blockConstraint(owner))
	}
	return updated, nil
}
