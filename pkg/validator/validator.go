package validator

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/oshworks/osh-api/internal/model"
)

// RegisterCustomValidators installs the enum validators referenced by
// request binding tags on gin's validator engine.
func RegisterCustomValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine")
	}

	if err := v.RegisterValidation("appointmenttype", validAppointmentType); err != nil {
		return err
	}
	if err := v.RegisterValidation("appointmentstatus", validAppointmentStatus); err != nil {
		return err
	}
	return nil
}

func validAppointmentType(fl validator.FieldLevel) bool {
	switch model.AppointmentType(fl.Field().String()) {
	case model.AppointmentTypeEmbauche, model.AppointmentTypePeriodique,
		model.AppointmentTypeReprise, model.AppointmentTypePreReprise,
		model.AppointmentTypeADemande:
		return true
	}
	return false
}

func validAppointmentStatus(fl validator.FieldLevel) bool {
	return model.AppointmentStatus(fl.Field().String()).Valid()
}
