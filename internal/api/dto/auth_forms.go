package dto

import "regexp"

// FieldError is one user-visible validation message tied to a form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"msg"`
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// LoginForm is the login submission payload.
type LoginForm struct {
	Email    string `form:"email"`
	Password string `form:"contrasena"`
}

// Validate accumulates every failing rule; it never short-circuits.
func (f *LoginForm) Validate() []FieldError {
	var errs []FieldError
	if !emailPattern.MatchString(f.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "El email es obligatorio"})
	}
	if f.Password == "" {
		errs = append(errs, FieldError{Field: "contrasena", Message: "La contraseña es obligatoria"})
	}
	return errs
}

// RegisterForm is the registration submission payload.
type RegisterForm struct {
	Name           string `form:"nombre"`
	Email          string `form:"email"`
	Phone          string `form:"telefono"`
	Password       string `form:"contrasena"`
	PasswordRepeat string `form:"repetir_contrasena"`
}

// Validate accumulates every failing rule. The repeat check is plain string
// equality; both values are still plaintext at this point.
func (f *RegisterForm) Validate() []FieldError {
	var errs []FieldError
	if f.Name == "" {
		errs = append(errs, FieldError{Field: "nombre", Message: "El nombre es obligatorio"})
	}
	if !emailPattern.MatchString(f.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "El Correo Electrónico no es valido"})
	}
	if len(f.Phone) != 8 {
		errs = append(errs, FieldError{Field: "telefono", Message: "El Teléfono no es de 8 números"})
	}
	if len(f.Password) < 5 {
		errs = append(errs, FieldError{Field: "contrasena", Message: "La contraseña debe contener al menos 5 caracteres"})
	}
	if f.PasswordRepeat != f.Password {
		errs = append(errs, FieldError{Field: "repetir_contrasena", Message: "Las contraseñas no son iguales"})
	}
	return errs
}

// ForgotPasswordForm is the forgot-password submission payload.
type ForgotPasswordForm struct {
	Email string `form:"email"`
}

// Validate checks the email shape.
func (f *ForgotPasswordForm) Validate() []FieldError {
	var errs []FieldError
	if !emailPattern.MatchString(f.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "El Correo Electrónico no es valido"})
	}
	return errs
}

// ResetPasswordForm is the final reset submission payload.
type ResetPasswordForm struct {
	Password       string `form:"contrasena"`
	PasswordRepeat string `form:"contrasenaRepetida"`
}

// Validate accumulates the new-password rules.
func (f *ResetPasswordForm) Validate() []FieldError {
	var errs []FieldError
	if len(f.Password) < 5 {
		errs = append(errs, FieldError{Field: "contrasena", Message: "La contraseña debe contener al menos 5 caracteres"})
	}
	if f.PasswordRepeat != f.Password {
		errs = append(errs, FieldError{Field: "contrasenaRepetida", Message: "Las Contraseñas no son iguales"})
	}
	return errs
}
