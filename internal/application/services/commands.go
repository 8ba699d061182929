package services

import (
	"regexp"

	"github.com/go-playground/validator"

	"github.com/DanielPopoola/pesapal-gateway/internal/domain"
)

type SubmitOrderCommand struct {
	Reference   string  `validate:"omitempty,merchantref"`
	BookingRef  string  `validate:"omitempty,max=100,storable"`
	Amount      float64 `validate:"gt=0"`
	Currency    string  `validate:"required,len=3"`
	Description string  `validate:"omitempty,max=100,storable"`
	CallbackURL string  `validate:"omitempty,storable,url"`
	Email       string  `validate:"omitempty,storable,email"`
	Phone       string  `validate:"omitempty,max=20,storable"`
	FirstName   string  `validate:"omitempty,max=50,storable"`
	LastName    string  `validate:"omitempty,max=50,storable"`
	IPAddress   string

	// DecodeErr is set when the request body was JSON but some field could
	// not be bound. The order is recorded and rejected.
	DecodeErr error `validate:"-"`
}

// merchantRefPattern mirrors what the gateway accepts as an order id.
var merchantRefPattern = regexp.MustCompile(`^[A-Za-z0-9\-_.:]{1,50}$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("merchantref", func(fl validator.FieldLevel) bool {
		return merchantRefPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("storable", func(fl validator.FieldLevel) bool {
		return domain.Storable(fl.Field().String())
	})
	return v
}
