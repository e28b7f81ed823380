package core

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

const defaultAcademicStatus = "REGULAR"

// Student is a row of the estudiante table. PasswordHash never leaves the
// process: it has no JSON representation.
type Student struct {
	CodigoCarrera     *string `json:"codigo_carrera"`
	RegistroAcademico string  `json:"registro_academico"`
	Nombre            string  `json:"nombre"`
	Apellido          string  `json:"apellido"`
	CI                *string `json:"ci"`
	Correo            *string `json:"correo"`
	Telefono          *string `json:"telefono"`
	Direccion         *string `json:"direccion"`
	EstadoAcademico   *string `json:"estado_academico"`
	PasswordHash      string  `json:"-"`
}

// StudentCreate is the body of POST /estudiantes/.
type StudentCreate struct {
	CodigoCarrera     *string `json:"codigo_carrera"`
	RegistroAcademico string  `json:"registro_academico" binding:"required"`
	Nombre            string  `json:"nombre" binding:"required"`
	Apellido          string  `json:"apellido" binding:"required"`
	CI                *string `json:"ci"`
	Correo            *string `json:"correo"`
	Telefono          *string `json:"telefono"`
	Direccion         *string `json:"direccion"`
	EstadoAcademico   *string `json:"estado_academico"`
	Contrasena        string  `json:"contrasena" binding:"required,min=4,max=50"`
}

// StudentPatch lists every field PUT /estudiantes/:id may change.
type StudentPatch struct {
	CodigoCarrera   Optional[string] `json:"codigo_carrera"`
	Nombre          Optional[string] `json:"nombre"`
	Apellido        Optional[string] `json:"apellido"`
	CI              Optional[string] `json:"ci"`
	Correo          Optional[string] `json:"correo"`
	Telefono        Optional[string] `json:"telefono"`
	Direccion       Optional[string] `json:"direccion"`
	EstadoAcademico Optional[string] `json:"estado_academico"`
	Contrasena      Optional[string] `json:"contrasena"`
}

// ApplyTo overwrites the fields of s that were present in the patch. The
// password, when present, must already be hashed by the caller.
func (p StudentPatch) ApplyTo(s *Student) error {
	applyNullable(&s.CodigoCarrera, p.CodigoCarrera)
	if err := applyRequired(&s.Nombre, p.Nombre, "nombre"); err != nil {
		return err
	}
	if err := applyRequired(&s.Apellido, p.Apellido, "apellido"); err != nil {
		return err
	}
	applyNullable(&s.CI, p.CI)
	applyNullable(&s.Correo, p.Correo)
	applyNullable(&s.Telefono, p.Telefono)
	applyNullable(&s.Direccion, p.Direccion)
	applyNullable(&s.EstadoAcademico, p.EstadoAcademico)
	return applyRequired(&s.PasswordHash, p.Contrasena, "contrasena")
}

// Payment is a row of the pago table.
type Payment struct {
	CodigoPago        string      `json:"codigo_pago"`
	RegistroAcademico *string     `json:"registro_academico"`
	Descripcion       *string     `json:"descripcion"`
	Monto             *float64    `json:"monto"`
	FechaPago         pgtype.Date `json:"fecha_pago"`
}

// Owner returns the owning academic id or "" when unset.
func (p Payment) Owner() string {
	if p.RegistroAcademico == nil {
		return ""
	}
	return *p.RegistroAcademico
}

// PaymentCreate is the body of POST /pagos/. A client supplied codigo_pago is
// ignored; codes are always allocated by the store.
type PaymentCreate struct {
	CodigoPago        string      `json:"codigo_pago"`
	RegistroAcademico *string     `json:"registro_academico"`
	Descripcion       *string     `json:"descripcion"`
	Monto             *float64    `json:"monto"`
	FechaPago         pgtype.Date `json:"fecha_pago"`
}

// Block is a row of the bloqueo table.
type Block struct {
	CodigoBloqueo     string  `json:"codigo_bloqueo"`
	RegistroAcademico *string `json:"registro_academico"`
	Descripcion       *string `json:"descripcion"`
}

// BlockCreate is the body of POST /bloqueos/.
type BlockCreate struct {
	CodigoBloqueo     string  `json:"codigo_bloqueo"`
	RegistroAcademico *string `json:"registro_academico"`
	Descripcion       *string `json:"descripcion"`
}

// BlockPatch lists every field PUT /bloqueos/:codigo may change.
type BlockPatch struct {
	RegistroAcademico Optional[string] `json:"registro_academico"`
	Descripcion       Optional[string] `json:"descripcion"`
}

func (p BlockPatch) ApplyTo(b *Block) {
	applyNullable(&b.RegistroAcademico, p.RegistroAcademico)
	applyNullable(&b.Descripcion, p.Descripcion)
}

// Principal is the authenticated identity resolved from a token.
type Principal struct {
	AcademicID      string
	Nombre          string
	Apellido        string
	Correo          *string
	EstadoAcademico *string
	CodigoCarrera   *string
	student         Student
}

func principalFromStudent(s Student) Principal {
	return Principal{
		AcademicID:      s.RegistroAcademico,
		Nombre:          s.Nombre,
		Apellido:        s.Apellido,
		Correo:          s.Correo,
		EstadoAcademico: s.EstadoAcademico,
		CodigoCarrera:   s.CodigoCarrera,
		student:         s,
	}
}

// Student returns the record the principal was resolved from.
func (p Principal) Student() Student { return p.student }

// Profile is the public identity payload of GET /auth/me.
type Profile struct {
	RegistroAcademico string  `json:"registro_academico"`
	Nombre            string  `json:"nombre"`
	Correo            *string `json:"correo"`
	EstadoAcademico   *string `json:"estado_academico"`
	CodigoCarrera     *string `json:"codigo_carrera"`
}

func (p Principal) Profile() Profile {
	return Profile{
		RegistroAcademico: p.AcademicID,
		Nombre:            strings.TrimSpace(p.Nombre + " " + p.Apellido),
		Correo:            p.Correo,
		EstadoAcademico:   p.EstadoAcademico,
		CodigoCarrera:     p.CodigoCarrera,
	}
}
