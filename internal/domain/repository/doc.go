// Package repository define las interfaces de repositorio de dominio.
//
// Estas interfaces representan contratos de negocio, independientes del
// almacenamiento subyacente (MongoDB, memoria).
//
// Las implementaciones concretas viven en internal/store/.
//
// Arquitectura:
//
//	┌─────────────────────────────────────────────────────┐
//	│           Services / Controllers                    │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│        domain/repository (interfaces)               │
//	│  AccountRepository, VerificationCodeRepository      │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	              ┌─────────┴─────────┐
//	              ▼                   ▼
//	      ┌─────────────┐     ┌─────────────┐
//	      │ store/mongo │     │store/memory │
//	      └─────────────┘     └─────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Las garantías de concurrencia (unicidad, consumo único) las da el
//     almacenamiento con operaciones atómicas, nunca locks de aplicación
//   - Errores de dominio están en errors.go
package repository
