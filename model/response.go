package model

import "github.com/google/uuid"

type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	FamilyID      uuid.UUID `json:"family_id"`
	Role          Role      `json:"role"`
	EmailVerified bool      `json:"email_verified"`
}

func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		FamilyID:      u.FamilyID,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}

type AuthResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

type SessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *UserResponse `json:"user,omitempty"`
}
