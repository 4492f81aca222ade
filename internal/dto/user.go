package dto

// RegisterRequest opens a pending account awaiting approval.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName" binding:"required"`
	Position string `json:"position"`
}

// RejectRequest declines a pending registration.
type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// UpdateProfileRequest edits the caller's own account details.
type UpdateProfileRequest struct {
	FullName string `json:"fullName"`
	Position string `json:"position"`
}

// ListUsersQuery binds the account listing query string.
type ListUsersQuery struct {
	Role     string `form:"role"`
	Status   string `form:"status"`
	Search   string `form:"search"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
}
