package auth

import "errors"

// LoginDTO is the credential payload for login.
type LoginDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() error {
	if d.Username == "" {
		return errors.New("username is required")
	}
	if d.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d RefreshTokenDTO) Validate() error {
	if d.RefreshToken == "" {
		return errors.New("refresh_token is required")
	}
	return nil
}

// ChangePasswordDTO carries a password change for the current account.
type ChangePasswordDTO struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (d ChangePasswordDTO) Validate() error {
	if d.OldPassword == "" {
		return errors.New("old_password is required")
	}
	if len(d.NewPassword) < 6 {
		return errors.New("new password must be at least 6 characters")
	}
	return nil
}
