package session

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type RegisterInput struct {
	CompanyName     string `json:"companyName" validate:"required"`
	FirstName       string `json:"firstName" validate:"required"`
	LastName        string `json:"lastName" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,upper,lower,digit,special"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries one message per failed field in declaration order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return e.Fields[0].Message
}

var fieldLabels = map[string]string{
	"companyName":     "Company name",
	"firstName":       "First name",
	"lastName":        "Last name",
	"email":           "Email",
	"password":        "Password",
	"confirmPassword": "Password confirmation",
	"vendorName":      "Vendor name",
	"vendorEmail":     "Vendor email",
	"contactName":     "Contact name",
	"contactNumber":   "Contact number",
	"deadlineDate":    "Deadline date",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterValidation("upper", hasRune(unicode.IsUpper))
	v.RegisterValidation("lower", hasRune(unicode.IsLower))
	v.RegisterValidation("digit", hasRune(unicode.IsDigit))
	v.RegisterValidation("special", hasRune(func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	}))
	return v
}

func hasRune(fn func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), fn) >= 0
	}
}

func message(fe validator.FieldError) string {
	label := fieldLabels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		if fe.Field() == "confirmPassword" {
			return "Please confirm your password"
		}
		return label + " is required"
	case "email":
		return "Please enter a valid email address"
	case "min":
		if fe.Field() == "contactNumber" {
			return fmt.Sprintf("%s must be at least %s digits", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "upper":
		return label + " must contain at least one uppercase letter"
	case "lower":
		return label + " must contain at least one lowercase letter"
	case "digit":
		return label + " must contain at least one number"
	case "special":
		return label + " must contain at least one special character"
	case "eqfield":
		return "Passwords don't match"
	case "datetime":
		return label + " must be a date (yyyy-mm-dd)"
	}
	return label + " is invalid"
}

// Validate checks input against its validate tags and returns a
// *ValidationError listing the first failure of every field.
func Validate(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &ValidationError{}
	seen := make(map[string]bool, len(errs))
	for _, fe := range errs {
		if seen[fe.Field()] {
			continue
		}
		seen[fe.Field()] = true
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}
