package oauth

import "errors"

var (
	// ErrPrecondition: estado que la capa de transporte debía garantizar
	// (aplicación o usuario inexistente a mitad de flujo). Se responde 500.
	ErrPrecondition = errors.New("oauth: precondition failed")

	// ErrGrantNotImplemented: grant habilitado sin estrategia registrada.
	ErrGrantNotImplemented = errors.New("oauth: grant type not implemented")
)
