package core

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("user not found")
	ErrService      = errors.New("service error")
	ErrExport       = errors.New("export failure")

	// ErrNoProfile reports an operation that needs a loaded profile.
	ErrNoProfile = errors.New("no profile loaded")
)

type ErrorKind string

const (
	KindNone         ErrorKind = ""
	KindInvalidInput ErrorKind = "invalid_input"
	KindNotFound     ErrorKind = "not_found"
	KindService      ErrorKind = "service_error"
	KindExport       ErrorKind = "export_failure"
	KindNoProfile    ErrorKind = "no_profile"
)

var messages = map[ErrorKind]string{
	KindInvalidInput: "Informe um nome de usuário",
	KindNotFound:     "Usuário não encontrado",
	KindService:      "Erro ao buscar dados do GitHub",
	KindExport:       "Erro ao exportar o cartão",
	KindNoProfile:    "Nenhum perfil carregado",
}

// Kind classifies err. Errors outside the taxonomy count as service errors.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrExport):
		return KindExport
	case errors.Is(err, ErrNoProfile):
		return KindNoProfile
	default:
		return KindService
	}
}

// Message returns the user-facing text for err, or "" for nil.
func Message(err error) string {
	return messages[Kind(err)]
}
