package auth

import (
	"regexp"
	"strconv"
	"strings"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// RegistrationForm is the raw sign-up input. Age arrives as text and is only
// converted after validation.
type RegistrationForm struct {
	FirstName string `json:"firstName" form:"firstName"`
	LastName  string `json:"lastName" form:"lastName"`
	Username  string `json:"username" form:"username"`
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"`
	Age       string `json:"age" form:"age"`
	Gender    string `json:"gender" form:"gender"`
}

// ValidateRegistration checks the form and returns one message per invalid
// field. An empty map means the form may be submitted.
func ValidateRegistration(f RegistrationForm) map[string]string {
	errs := make(map[string]string)

	if strings.TrimSpace(f.FirstName) == "" {
		errs["firstName"] = "First name is required"
	}
	if strings.TrimSpace(f.LastName) == "" {
		errs["lastName"] = "Last name is required"
	}
	if strings.TrimSpace(f.Username) == "" {
		errs["username"] = "Username is required"
	}
	if strings.TrimSpace(f.Email) == "" {
		errs["email"] = "Email is required"
	} else if !emailPattern.MatchString(f.Email) {
		errs["email"] = "Email is invalid"
	}
	if f.Password == "" {
		errs["password"] = "Password is required"
	} else if len(f.Password) < 8 {
		errs["password"] = "Password must be at least 8 characters"
	}
	if f.Age == "" {
		errs["age"] = "Age is required"
	} else if age, err := strconv.Atoi(f.Age); err != nil || age < 1 || age > 120 {
		errs["age"] = "Age must be between 1 and 120"
	}

	return errs
}
