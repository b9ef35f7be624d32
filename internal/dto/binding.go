package dto

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/sqrlplanner/timetable-sync/internal/models"
)

// RegisterValidations installs the custom binding validations used by the
// request DTOs on gin's validator engine. Call once at startup before
// routes are served.
func RegisterValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("sessioncode", func(fl validator.FieldLevel) bool {
		_, err := models.ParseSessionCode(fl.Field().String())
		return err == nil
	})
}
