package api

import (
	"sync"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// registerValidators adds the custom binding rules to gin's validator engine.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("passenger_type", func(fl validator.FieldLevel) bool {
			return domain.PassengerType(fl.Field().String()).Valid()
		})
	})
}
