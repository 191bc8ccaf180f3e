package domain

import "time"

// User representa a entidade do usuário no sistema.
// Um admin é a identidade da empresa: solicitações e estoques da empresa
// referenciam o ID do admin como CompanyID/OwnerID.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Oculta o hash da senha no JSON de resposta
	Phone        string    `json:"phone"`
	Location     string    `json:"location"` // Endereço padrão de entrega do usuário
	Branch       string    `json:"branch"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRole é um tipo string para representar o papel do usuário no sistema.
type UserRole string

const (
	RoleUser       UserRole = "user"
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "superadmin"
)

// UserRegistration representa o payload de entrada para o registro.
type UserRegistration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Branch   string `json:"branch"`
}
