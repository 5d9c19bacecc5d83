package handler

// Request shapes decoded by middleware.Validate.

type SendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type GoogleOAuthRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type AppleName struct {
	FirstName string `json:"firstName" validate:"omitempty,max=50"`
	LastName  string `json:"lastName" validate:"omitempty,max=50"`
}

type AppleUser struct {
	Name *AppleName `json:"name"`
}

// AppleOAuthRequest carries the user block Apple only sends on first sign-in.
type AppleOAuthRequest struct {
	IDToken string     `json:"idToken" validate:"required"`
	User    *AppleUser `json:"user"`
}

func (r AppleOAuthRequest) FullName() string {
	if r.User == nil || r.User.Name == nil {
		return ""
	}
	switch {
	case r.User.Name.FirstName == "":
		return r.User.Name.LastName
	case r.User.Name.LastName == "":
		return r.User.Name.FirstName
	}
	return r.User.Name.FirstName + " " + r.User.Name.LastName
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" form:"name" validate:"required,min=2,max=50"`
	Username string `json:"username" form:"username" validate:"required,min=3,max=30,username"`
}

type UpdateDetailsRequest struct {
	Name     *string `json:"name" form:"name" validate:"omitempty,min=2,max=50"`
	Username *string `json:"username" form:"username" validate:"omitempty,min=3,max=30,username"`
}

type UsernameParams struct {
	Username string `param:"username" validate:"required,min=3,max=30,username"`
}

type HealthQuery struct {
	Detailed bool `query:"detailed"`
}
