package guestalbum

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to parse phone numbers without a country prefix.
var DefaultPhoneRegion = "TR"

// LoginCredentials is the login payload.
type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules. Password policy belongs to the server,
// only presence is checked here.
func (r LoginCredentials) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// Registration is the account creation payload.
type Registration struct {
	Username        string `json:"username,omitempty"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Phone           string `json:"phone,omitempty"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// Validate will run validation rules
func (r Registration) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 150)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 150)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Username, validation.Length(0, 150)),
		validation.Field(&r.Phone, validation.By(validPhone)),
		validation.Field(&r.Password, validation.Required),
		validation.Field(
			&r.PasswordConfirm,
			validation.Required,
			validation.By(stringEquals(r.Password, "passwords do not match")),
		),
	)
}

// Normalize returns a copy with trimmed fields, a default username and the
// phone number in E.164 form.
func (r Registration) Normalize() Registration {
	r.Email = strings.TrimSpace(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" {
		r.Username = usernameFromEmail(r.Email)
	}
	if phone, err := NormalizePhone(r.Phone); err == nil {
		r.Phone = phone
	}
	return r
}

// PasswordChange is the password change payload.
type PasswordChange struct {
	OldPassword        string `json:"old_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// Validate will run validation rules
func (r PasswordChange) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(
			&r.NewPassword,
			validation.Required,
			validation.By(stringDiffers(r.OldPassword, "new password must differ from the old one")),
		),
		validation.Field(
			&r.NewPasswordConfirm,
			validation.Required,
			validation.By(stringEquals(r.NewPassword, "passwords do not match")),
		),
	)
}

// ProfilePatch is a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Website   *string `json:"website,omitempty"`
	Location  *string `json:"location,omitempty"`
	BirthDate *string `json:"birth_date,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Phone == nil &&
		p.Bio == nil && p.Website == nil && p.Location == nil && p.BirthDate == nil
}

// Validate will run validation rules
func (p ProfilePatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FirstName, validation.NilOrNotEmpty, validation.Length(1, 150)),
		validation.Field(&p.LastName, validation.NilOrNotEmpty, validation.Length(1, 150)),
		validation.Field(&p.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&p.Phone, validation.By(validPhone)),
		validation.Field(&p.Website, is.URL),
		validation.Field(&p.BirthDate, validation.Date(dateLayout)),
	)
}

// NormalizePhone parses number with DefaultPhoneRegion and formats it as E.164.
// An empty number is returned unchanged.
func NormalizePhone(number string) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", nil
	}
	parsed, err := phonenumbers.Parse(number, DefaultPhoneRegion)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("invalid phone number %q", number)
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

func validPhone(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	default:
		return nil
	}
	if _, err := NormalizePhone(s); err != nil {
		return errors.New("must be a valid phone number")
	}
	return nil
}

func stringEquals(expected, message string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != expected {
			return errors.New(message)
		}
		return nil
	}
}

func stringDiffers(other, message string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != "" && s == other {
			return errors.New(message)
		}
		return nil
	}
}

func usernameFromEmail(email string) string {
	if name, _, ok := strings.Cut(email, "@"); ok {
		return name
	}
	return email
}

// validationMessage flattens ozzo validation errors into one line.
func validationMessage(err error) string {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return strings.TrimSuffix(verrs.Error(), ".")
	}
	return err.Error()
}

func invalidInput(err error) error {
	return failure(ErrInvalidInput, validationMessage(err), err, nil)
}
