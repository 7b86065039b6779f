package repository

import "github.com/jhoicas/Kardex-api/internal/domain/entity"

// ProductRepository puerto de consulta de productos. El motor solo necesita
// resolver pertenencia al tenant; el CRUD completo vive fuera de este core.
type ProductRepository interface {
	// GetByID devuelve el producto, o nil si no existe.
	GetByID(id string) (*entity.Product, error)
}
