package calc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/itqwq/stockviz/model"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownTicker  = errors.New("unknown ticker")
	ErrNoData         = errors.New("no data in window")
	ErrUpstream       = errors.New("calculation service unavailable")
)

// Validator checks calculation requests.
type Validator struct {
	validate *validator.Validate
}

// NewValidator returns a validator with the ticker and date rules registered.
func NewValidator() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("ticker", isValidTicker)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// isValidTicker accepts 1 to 10 uppercase letters, digits or dots.
func isValidTicker(fl validator.FieldLevel) bool {
	ticker := fl.Field().String()
	if len(ticker) < 1 || len(ticker) > 10 {
		return false
	}
	for _, ch := range ticker {
		if !((ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '.') {
			return false
		}
	}
	return true
}

// Validate checks the ticker, both dates and their order.
func (v *Validator) Validate(request model.Request) error {
	if err := v.validate.Struct(request); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			messages := make([]string, 0, len(fieldErrors))
			for _, fieldError := range fieldErrors {
				messages = append(messages, fmt.Sprintf("%s failed on %s", fieldError.Field(), fieldError.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(messages, ", "))
		}
		return fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	if _, err := request.Window(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}
	return nil
}
