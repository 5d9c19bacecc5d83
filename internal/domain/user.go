package domain

import "time"

// UserType is the role tag that discriminates the user variants stored in the users table.
type UserType string

const (
	UserTypeClient UserType = "Client"
	UserTypeAdmin  UserType = "Admin"
)

// Valid reports whether t is one of the known variants.
func (t UserType) Valid() bool {
	return t == UserTypeClient || t == UserTypeAdmin
}

const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
	ProviderApple  = "apple"
)

type Avatar struct {
	ID  string `json:"id" dynamodbav:"id"`
	URL string `json:"url" dynamodbav:"url"`
}

type ProviderLink struct {
	ID    string `json:"id" dynamodbav:"id"`
	Email string `json:"email" dynamodbav:"email"`
}

type Providers struct {
	Google *ProviderLink `json:"google,omitempty" dynamodbav:"google,omitempty"`
	Apple  *ProviderLink `json:"apple,omitempty" dynamodbav:"apple,omitempty"`
}

// ClientProfile is the payload of the Client variant.
type ClientProfile struct {
	IsBlocked   bool              `json:"isBlocked" dynamodbav:"is_blocked"`
	IsDeleted   bool              `json:"isDeleted" dynamodbav:"is_deleted"`
	Preferences map[string]string `json:"preferences,omitempty" dynamodbav:"preferences,omitempty"`
}

// AdminProfile is the payload of the Admin variant.
type AdminProfile struct {
	Permissions []string `json:"permissions" dynamodbav:"permissions"`
	SuperAdmin  bool     `json:"superAdmin" dynamodbav:"super_admin"`
}

// User is a single record of the users table. Exactly one of Client or Admin is set,
// matching Type.
type User struct {
	UserID            string         `json:"id" dynamodbav:"user_id"`
	Email             string         `json:"email" dynamodbav:"email"`
	Name              string         `json:"name,omitempty" dynamodbav:"name,omitempty"`
	Username          string         `json:"username,omitempty" dynamodbav:"username,omitempty"`
	Avatar            *Avatar        `json:"avatar,omitempty" dynamodbav:"avatar,omitempty"`
	IsEmailVerified   bool           `json:"isEmailVerified" dynamodbav:"is_email_verified"`
	IsProfileComplete bool           `json:"isProfileComplete" dynamodbav:"is_profile_complete"`
	Providers         Providers      `json:"providers" dynamodbav:"providers"`
	SignInProvider    string         `json:"signInProvider,omitempty" dynamodbav:"sign_in_provider,omitempty"`
	GoogleSub         string         `json:"-" dynamodbav:"google_sub,omitempty"`
	AppleSub          string         `json:"-" dynamodbav:"apple_sub,omitempty"`
	Type              UserType       `json:"userType" dynamodbav:"user_type"`
	Client            *ClientProfile `json:"client,omitempty" dynamodbav:"client,omitempty"`
	Admin             *AdminProfile  `json:"admin,omitempty" dynamodbav:"admin,omitempty"`
	CreatedAt         time.Time      `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt         time.Time      `json:"updatedAt" dynamodbav:"updated_at"`
}

// NewUser builds a user of the given variant with an empty payload for that variant.
func NewUser(id, email string, t UserType, now time.Time) *User {
	u := &User{
		UserID:    id,
		Email:     email,
		Type:      t,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch t {
	case UserTypeAdmin:
		u.Admin = &AdminProfile{Permissions: []string{}}
	default:
		u.Type = UserTypeClient
		u.Client = &ClientProfile{}
	}
	return u
}

// ProfileComplete reports whether both name and username are set.
func (u *User) ProfileComplete() bool {
	return u.Name != "" && u.Username != ""
}

// SyncProfileComplete recomputes IsProfileComplete from name and username.
func (u *User) SyncProfileComplete() {
	u.IsProfileComplete = u.ProfileComplete()
}

// Blocked reports whether the user is a blocked client.
func (u *User) Blocked() bool {
	return u.Type == UserTypeClient && u.Client != nil && u.Client.IsBlocked
}

// Deleted reports whether the user is a soft-deleted client.
func (u *User) Deleted() bool {
	return u.Type == UserTypeClient && u.Client != nil && u.Client.IsDeleted
}

// LinkProvider records the provider subject on the user. It returns false when the
// link already holds the same subject and email.
func (u *User) LinkProvider(provider, subject, email string) bool {
	link := &ProviderLink{ID: subject, Email: email}
	switch provider {
	case ProviderGoogle:
		if u.Providers.Google != nil && *u.Providers.Google == *link {
			return false
		}
		u.Providers.Google = link
		u.GoogleSub = subject
	case ProviderApple:
		if u.Providers.Apple != nil && *u.Providers.Apple == *link {
			return false
		}
		u.Providers.Apple = link
		u.AppleSub = subject
	default:
		return false
	}
	return true
}
