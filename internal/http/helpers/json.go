// Package helpers agrupa utilidades HTTP compartidas por los controllers.
package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/accounts/internal/http/errors"
)

// MaxBodyBytes es el tamaño máximo aceptado para cuerpos JSON.
const MaxBodyBytes int64 = 64 << 10

// ReadJSON decodifica el body en dst. Campos desconocidos se ignoran.
// Un body vacío es válido cuando allowEmpty es true.
func ReadJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "application/json") {
		return httperrors.ErrInvalidJSON.WithDetail("content-type must be application/json")
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && allowEmpty:
		return nil
	case errors.Is(err, io.EOF):
		return httperrors.ErrInvalidJSON.WithDetail("empty body")
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return httperrors.ErrBodyTooLarge
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return httperrors.ErrInvalidInput.WithDetail(typeErr.Field + " has the wrong type")
	}
	return httperrors.ErrInvalidJSON.WithCause(err)
}

// WriteJSON serializa v con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
