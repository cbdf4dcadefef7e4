// Package repository define los contratos de almacenamiento del servidor de
// autorización, independientes del backend (PostgreSQL o memoria).
//
// Las implementaciones viven en internal/store/pg e internal/store/memory.
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Los ids internos son strings opacos (uuid)
//   - Los errores de dominio están en errors.go; los adapters los envuelven con %w
package repository
