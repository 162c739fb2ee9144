package logger

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTP

func RequestID(v string) zap.Field       { return zap.String("request_id", v) }
func Method(v string) zap.Field          { return zap.String("method", v) }
func Path(v string) zap.Field            { return zap.String("path", v) }
func Status(v int) zap.Field             { return zap.Int("status", v) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func Bytes(v int) zap.Field              { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field        { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field       { return zap.String("user_agent", v) }

// Negocio

// Subject es el identificador del usuario en el IdP.
func Subject(v string) zap.Field { return zap.String("subject", v) }

// Email loguea la dirección enmascarada (a***@dominio).
func Email(v string) zap.Field { return zap.String("email", MaskEmail(v)) }

func Role(v string) zap.Field     { return zap.String("role", v) }
func Created(v bool) zap.Field    { return zap.Bool("created", v) }
func Template(v string) zap.Field { return zap.String("template", v) }

// Sistema

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }
func Count(v int64) zap.Field      { return zap.Int64("count", v) }

// MaskEmail deja visible el primer carácter del local-part y el dominio.
func MaskEmail(v string) string {
	at := strings.LastIndexByte(v, '@')
	if at <= 0 {
		if v == "" {
			return ""
		}
		return "***"
	}
	return v[:1] + "***" + v[at:]
}

// Genéricos

func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }

// Field es un alias para no importar zap en los callers.
type Field = zap.Field

func Any(key string, v any) zap.Field { return zap.Any(key, v) }
