package domain

import (
	"net/mail"
	"strings"
	"time"
)

// DefaultPicture is assigned to accounts that never uploaded a photo.
const DefaultPicture = "https://res.cloudinary.com/ddu6qxlpy/image/upload/v1627168233/iafh6yj3q0bdpthswtu3.jpg"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	OAuthGoogle   = "google"
	OAuthFacebook = "facebook"
)

type User struct {
	ID                string     `json:"id"`
	FirstName         string     `json:"firstName"`
	LastName          string     `json:"lastName"`
	Email             string     `json:"email"`
	Picture           string     `json:"picture"`
	About             string     `json:"about,omitempty"`
	PasswordHash      string     `json:"-"`
	Role              string     `json:"role"`
	OAuth             bool       `json:"oauth"`
	OAuthMethod       string     `json:"oauthMethod,omitempty"`
	PasswordChangedAt *time.Time `json:"passwordChangedAt,omitempty"`
	LastLoginAt       *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// PasswordChangedAfter reports whether the password changed after a token issued at iat.
// Comparison is at second resolution, like the token's iat claim.
func (u *User) PasswordChangedAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > iat.Unix()
}

// Member is the public projection of a user embedded in rooms and messages.
func (u *User) Member() Member {
	return Member{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Picture: u.Picture}
}

type Member struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Picture   string `json:"picture"`
}

// Signup is the input of account creation with a password.
type Signup struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (s *Signup) Normalize() {
	s.FirstName = strings.TrimSpace(s.FirstName)
	s.LastName = strings.TrimSpace(s.LastName)
	s.Email = NormalizeEmail(s.Email)
}

func (s Signup) Validate() error {
	switch {
	case s.FirstName == "":
		return invalid("firstName", "you must enter your first name")
	case s.LastName == "":
		return invalid("lastName", "you must enter your last name")
	case s.Email == "":
		return invalid("email", "you must enter your email")
	}
	if err := ValidateEmail(s.Email); err != nil {
		return err
	}
	return ValidatePassword(s.Password, s.PasswordConfirm)
}

// ProfileUpdate carries the fields a user may change on their own profile.
// Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	About     *string `json:"about"`
	Picture   *string `json:"-"`
}

func (p *ProfileUpdate) Normalize() {
	trim := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	trim(p.FirstName)
	trim(p.LastName)
	trim(p.About)
	if p.Email != nil {
		e := NormalizeEmail(*p.Email)
		p.Email = &e
	}
}

func (p ProfileUpdate) Validate() error {
	if p.FirstName != nil && *p.FirstName == "" {
		return invalid("firstName", "you must enter your first name")
	}
	if p.LastName != nil && *p.LastName == "" {
		return invalid("lastName", "you must enter your last name")
	}
	if p.Email != nil {
		return ValidateEmail(*p.Email)
	}
	return nil
}

// Apply copies the set fields onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.About != nil {
		u.About = *p.About
	}
	if p.Picture != nil {
		u.Picture = *p.Picture
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail accepts a bare address; display names are rejected.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return invalid("email", "you must enter a valid email")
	}
	return nil
}

func ValidatePassword(password, confirm string) error {
	switch {
	case password == "":
		return invalid("password", "you must enter the password")
	case len(password) < 8:
		return invalid("password", "password must be at least 8 characters")
	case confirm == "":
		return invalid("passwordConfirm", "you must enter the password confirm field")
	case password != confirm:
		return invalid("passwordConfirm", "passwords are not the same")
	}
	return nil
}
