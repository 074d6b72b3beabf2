// Package validation validates structs with go-playground/validator tags
// and reports failures as an *errors.AppError listing every offending field.
//
//	type Unit struct {
//	    Name   string `mapstructure:"name" validate:"required"`
//	    Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`
//	}
//	if err := validation.Validate(unit); err != nil { ... }
package validation
