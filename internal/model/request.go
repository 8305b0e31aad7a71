package model

type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email,min=5,max=100"`
	Password string  `json:"password" validate:"required,min=8,max=100,has_upper,has_lower,has_digit"`
	Name     *string `json:"name" validate:"omitempty,min=2,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateRoleRequest struct {
	Role Role `json:"role" validate:"required,oneof=USER ADMIN"`
}
