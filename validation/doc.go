// Package validation checks configuration structs against their
// `validate` struct tags and reports failures as INVALID_INPUT errors.
//
//	type Settings struct {
//		Shell string `mapstructure:"shell" validate:"omitempty,oneof=auto posix windows direct"`
//	}
//	err := validation.Validate(settings)
package validation
