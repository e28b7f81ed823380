package core

import (
	"fmt"
	"net/http"
)

// Category is the closed set of failure kinds. The category alone decides the
// HTTP status of a failure.
type Category int

const (
	CategoryValidation Category = iota + 1
	CategoryNotFound
	CategoryConflict
	CategoryAuthentication
	CategoryAuthorization
	CategoryPersistence
)

var categoryStatus = map[Category]int{
	CategoryValidation:     http.StatusBadRequest,
	CategoryNotFound:       http.StatusNotFound,
	CategoryConflict:       http.StatusConflict,
	CategoryAuthentication: http.StatusUnauthorized,
	CategoryAuthorization:  http.StatusForbidden,
	CategoryPersistence:    http.StatusInternalServerError,
}

var categoryNames = map[Category]string{
	CategoryValidation:     "validation",
	CategoryNotFound:       "not_found",
	CategoryConflict:       "conflict",
	CategoryAuthentication: "authentication",
	CategoryAuthorization:  "authorization",
	CategoryPersistence:    "persistence",
}

// StatusCode returns the HTTP status for c. Unknown categories map to 500.
func (c Category) StatusCode() int {
	if s, ok := categoryStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Error codes carried by the domain refinements.
const (
	CodeValidation              = "VALIDATION_ERROR"
	CodeStudentNotFound         = "ESTUDIANTE_NOT_FOUND"
	CodeStudentAlreadyExists    = "ESTUDIANTE_ALREADY_EXISTS"
	CodePaymentNotFound         = "PAGO_NOT_FOUND"
	CodePaymentAlreadyExists    = "PAGO_ALREADY_EXISTS"
	CodeBlockNotFound           = "BLOQUEO_NOT_FOUND"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	CodeInvalidCredentials      = "INVALID_CREDENTIALS"
	CodeInvalidToken            = "INVALID_TOKEN"
	CodeInternal                = "INTERNAL_SERVER_ERROR"
)

// AppError is a structured failure. Message, Code and Details are safe to
// return to clients; the wrapped cause is only ever logged.
type AppError struct {
	Category Category
	Message  string
	Code     string
	Details  map[string]any
	cause    error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

// StatusCode is the HTTP status derived from the category.
func (e *AppError) StatusCode() int { return e.Category.StatusCode() }

// Body renders the client-facing payload.
func (e *AppError) Body() ErrorBody {
	body := ErrorBody{Message: e.Message, Details: e.Details}
	if e.Code != "" {
		code := e.Code
		body.ErrorCode = &code
	}
	if body.Details == nil {
		body.Details = map[string]any{}
	}
	return body
}

// ErrorBody is the uniform error payload of every endpoint.
type ErrorBody struct {
	Message   string         `json:"message"`
	ErrorCode *string        `json:"error_code"`
	Details   map[string]any `json:"details"`
}

func newAppError(cat Category, message, code string, details map[string]any) *AppError {
	if details == nil {
		details = map[string]any{}
	}
	return &AppError{Category: cat, Message: message, Code: code, Details: details}
}

// NewValidationError builds a ValidationFailure without a machine code,
// matching the bare validation errors raised by the stores.
func NewValidationError(message string) *AppError {
	return newAppError(CategoryValidation, message, "", nil)
}

// NewPersistenceError wraps an infrastructure fault. The cause stays server side.
func NewPersistenceError(message string, cause error) *AppError {
	e := newAppError(CategoryPersistence, message, "", nil)
	e.cause = cause
	return e
}

// StudentNotFound is raised when no student matches registroAcademico (or ci
// when registroAcademico is empty).
func StudentNotFound(registroAcademico, ci string) *AppError {
	switch {
	case registroAcademico != "":
		return newAppError(CategoryNotFound,
			fmt.Sprintf("Estudiante con registro académico %s no encontrado", registroAcademico),
			CodeStudentNotFound, map[string]any{"registro_academico": registroAcademico})
	case ci != "":
		return newAppError(CategoryNotFound,
			fmt.Sprintf("Estudiante con CI %s no encontrado", ci),
			CodeStudentNotFound, map[string]any{"ci": ci})
	default:
		return newAppError(CategoryNotFound, "Estudiante no encontrado", CodeStudentNotFound, nil)
	}
}

// StudentAlreadyExists is raised on a duplicate unique field.
func StudentAlreadyExists(field, value string) *AppError {
	return newAppError(CategoryConflict,
		fmt.Sprintf("Ya existe un estudiante con %s: %s", field, value),
		CodeStudentAlreadyExists, map[string]any{field: value})
}

// PaymentNotFound is raised when a payment code does not resolve. An empty
// code yields empty details.
func PaymentNotFound(codigoPago string) *AppError {
	if codigoPago == "" {
		return newAppError(CategoryNotFound, "Pago no encontrado", CodePaymentNotFound, nil)
	}
	return newAppError(CategoryNotFound,
		fmt.Sprintf("Pago con ID %s no encontrado", codigoPago),
		CodePaymentNotFound, map[string]any{"pago_id": codigoPago})
}

// PaymentAlreadyExists is raised on a payment primary key collision.
func PaymentAlreadyExists(details map[string]any) *AppError {
	return newAppError(CategoryConflict, "Ya existe un pago con los datos proporcionados",
		CodePaymentAlreadyExists, details)
}

// BlockNotFound mirrors PaymentNotFound for account blocks.
func BlockNotFound(codigoBloqueo string) *AppError {
	if codigoBloqueo == "" {
		return newAppError(CategoryNotFound, "Bloqueo no encontrado", CodeBlockNotFound, nil)
	}
	return newAppError(CategoryNotFound,
		fmt.Sprintf("Bloqueo con ID %s no encontrado", codigoBloqueo),
		CodeBlockNotFound, map[string]any{"bloqueo_id": codigoBloqueo})
}

// InsufficientPermissions is raised by the ownership guard.
func InsufficientPermissions(requiredAction string) *AppError {
	return newAppError(CategoryAuthorization,
		fmt.Sprintf("Permisos insuficientes para realizar la acción: %s", requiredAction),
		CodeInsufficientPermissions, map[string]any{"required_action": requiredAction})
}

// InvalidCredentials covers both unknown identifiers and wrong passwords.
func InvalidCredentials() *AppError {
	return newAppError(CategoryAuthentication, "Credenciales inválidas", CodeInvalidCredentials, nil)
}

// InvalidToken covers malformed, expired and orphaned tokens alike.
func InvalidToken() *AppError {
	return newAppError(CategoryAuthentication, "Token de acceso inválido", CodeInvalidToken, nil)
}

// HTTPError is a transport-level failure whose Detail is either an already
// structured body (ErrorBody or map) or a plain string.
type HTTPError struct {
	Status int
	Detail any
}

func NewHTTPError(status int, detail any) *HTTPError {
	return &HTTPError{Status: status, Detail: detail}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %v", e.Status, e.Detail)
}

// Body returns the payload unchanged when already structured, otherwise wraps
// the string form into the canonical shape.
func (e *HTTPError) Body() any {
	switch d := e.Detail.(type) {
	case ErrorBody, map[string]any:
		return d
	case string:
		code := fmt.Sprintf("HTTP_%d", e.Status)
		return ErrorBody{Message: d, ErrorCode: &code, Details: map[string]any{}}
	default:
		code := fmt.Sprintf("HTTP_%d", e.Status)
		return ErrorBody{Message: fmt.Sprint(d), ErrorCode: &code, Details: map[string]any{}}
	}
}

// internalErrorBody is returned for any unclassified failure.
func internalErrorBody() ErrorBody {
	code := CodeInternal
	return ErrorBody{Message: "Error interno del servidor", ErrorCode: &code, Details: map[string]any{}}
}
