package repository

import "github.com/jhoicas/Kardex-api/internal/domain/entity"

// BranchRepository puerto de consulta de sucursales (validación de tenant).
type BranchRepository interface {
	// GetByID devuelve la sucursal, o nil si no existe.
	GetByID(id string) (*entity.Branch, error)
}
