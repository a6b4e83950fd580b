package favorites

import (
	"github.com/Daskott/favdial/models"
	"github.com/go-playground/validator"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("communication_method", func(fl validator.FieldLevel) bool {
		return models.CommunicationMethod(fl.Field().String()).IsValid()
	})
	_ = validate.RegisterValidation("communication_app", func(fl validator.FieldLevel) bool {
		return models.CommunicationApp(fl.Field().String()).IsValid()
	})
}

// NewFavorite is the input to Manager.Add. A zero Method or App means the default.
type NewFavorite struct {
	ContactRef   string                     `json:"contactIdentifier" validate:"required"`
	PhoneNumber  string                     `json:"phoneNumber" validate:"required_without=EmailAddress"`
	EmailAddress string                     `json:"emailAddress" validate:"omitempty,email"`
	DisplayName  string                     `json:"displayName"`
	GivenName    string                     `json:"contactGivenName"`
	FamilyName   string                     `json:"contactFamilyName"`
	Method       models.CommunicationMethod `json:"communicationMethod" validate:"omitempty,communication_method"`
	App          models.CommunicationApp    `json:"communicationApp" validate:"omitempty,communication_app"`
}

// Routing is the input to Manager.UpdateRouting.
type Routing struct {
	Method models.CommunicationMethod `json:"communicationMethod" validate:"required,communication_method"`
	App    models.CommunicationApp    `json:"communicationApp" validate:"required,communication_app"`
}
