package entity

import "time"

// Product datos mínimos de producto que necesita el motor de mutaciones:
// pertenencia al tenant y estado. El CRUD completo vive fuera de este core;
// aquí solo se consulta para validar el aislamiento por tenant.
type Product struct {
	ID        string
	TenantID  string
	Name      string
	Active    bool
	CreatedAt time.Time
}
