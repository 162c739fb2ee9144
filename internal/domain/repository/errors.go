package repository

import "errors"

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica un conflicto de unicidad (ej: subject duplicado).
	ErrConflict = errors.New("conflict")

	// ErrCodeUnusable indica que ningún código activo coincide con la tupla
	// (email, subject, code). Cubre código incorrecto, expirado, ya usado o
	// nunca emitido.
	ErrCodeUnusable = errors.New("verification code unusable")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
