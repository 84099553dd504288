// Package apperr define la taxonomia de errores que devuelve el modelo de autenticacion.
package apperr

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind clasifica un error por su causa, no por su tipo concreto.
type Kind int

const (
	Internal Kind = iota
	InvalidArgument
	NotFound
	AlreadyExists
	Unauthenticated
	PermissionDenied
)

const internalMessage = "internal error"

var kindNames = map[Kind]string{
	Internal:         "internal",
	InvalidArgument:  "invalid_argument",
	NotFound:         "not_found",
	AlreadyExists:    "already_exists",
	Unauthenticated:  "unauthenticated",
	PermissionDenied: "permission_denied",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// GRPCCode traduce el kind a un codigo gRPC.
func (k Kind) GRPCCode() codes.Code {
	switch k {
	case InvalidArgument:
		return codes.InvalidArgument
	case NotFound:
		return codes.NotFound
	case AlreadyExists:
		return codes.AlreadyExists
	case Unauthenticated:
		return codes.Unauthenticated
	case PermissionDenied:
		return codes.PermissionDenied
	default:
		return codes.Internal
	}
}

// HTTPStatus traduce el kind a un status HTTP.
func (k Kind) HTTPStatus() int {
	switch k {
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case AlreadyExists:
		return http.StatusConflict
	case Unauthenticated:
		return http.StatusUnauthorized
	case PermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error es el error estructurado: kind + mensaje corto + causa opcional.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is compara por kind, de modo que errors.Is(err, apperr.New(apperr.NotFound, "")) funciona.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// GRPCStatus permite que status.FromError reconozca el error. Los errores
// internos no publican su mensaje.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Kind.GRPCCode(), PublicMessage(e))
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func NewInvalidArgument(message string) *Error  { return New(InvalidArgument, message) }
func NewNotFound(message string) *Error         { return New(NotFound, message) }
func NewAlreadyExists(message string) *Error    { return New(AlreadyExists, message) }
func NewUnauthenticated(message string) *Error  { return New(Unauthenticated, message) }
func NewPermissionDenied(message string) *Error { return New(PermissionDenied, message) }

// NewInternal envuelve una falla no atribuible al caller.
func NewInternal(message string, cause error) *Error {
	return Wrap(Internal, message, cause)
}

// KindOf devuelve el kind de err. Cualquier error ajeno a este paquete es Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsKind indica si err pertenece al kind dado.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage devuelve el mensaje apto para el cliente final.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == Internal {
		return internalMessage
	}
	return e.Message
}
