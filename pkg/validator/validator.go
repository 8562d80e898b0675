// Package validator wraps go-playground/validator with the booking domain
// tags. The same registrations are applied to gin's binding engine so
// request DTOs and service inputs share one rule set.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/booking-api/pkg/civildate"
)

var (
	bookingIDPattern = regexp.MustCompile(`^BK-[A-Z0-9]{4}-[A-Z0-9]{3}$`)
	requestIDPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)

	slots        = map[string]struct{}{"MORNING": {}, "AFTERNOON": {}, "NIGHT": {}}
	serviceTypes = map[string]struct{}{"CONSULTATION": {}, "INSTALLATION": {}, "REPAIR": {}, "MAINTENANCE": {}}
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Get returns the shared validator using the `validate` tag.
func Get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		if err := Register(instance); err != nil {
			panic(err)
		}
	})
	return instance
}

// Struct validates s with the shared validator.
func Struct(s interface{}) error {
	return Get().Struct(s)
}

// Register installs the domain tags, custom type funcs and json field names on v.
func Register(v *validator.Validate) error {
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(civildate.Date); ok {
			return d.String()
		}
		return nil
	}, civildate.Date{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	validations := map[string]validator.Func{
		"bookingid":   validateBookingID,
		"requestid":   validateRequestID,
		"datekey":     validateDateKey,
		"slot":        validateSlot,
		"servicetype": validateServiceType,
		"money":       validateMoney,
	}
	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validation: %w", tag, err)
		}
	}
	return nil
}

func validateBookingID(fl validator.FieldLevel) bool {
	return bookingIDPattern.MatchString(strings.ToUpper(fl.Field().String()))
}

func validateRequestID(fl validator.FieldLevel) bool {
	return requestIDPattern.MatchString(fl.Field().String())
}

func validateDateKey(fl validator.FieldLevel) bool {
	_, err := civildate.Parse(fl.Field().String())
	return err == nil
}

func validateSlot(fl validator.FieldLevel) bool {
	_, ok := slots[strings.ToUpper(fl.Field().String())]
	return ok
}

func validateServiceType(fl validator.FieldLevel) bool {
	_, ok := serviceTypes[strings.ToUpper(fl.Field().String())]
	return ok
}

// validateMoney accepts non-negative amounts with at most two decimals.
func validateMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return !d.IsNegative() && d.Equal(d.Round(2))
}

// Messages flattens validation errors into field -> message.
func Messages(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "email":
		return "invalid email format"
	case "max":
		return "value is too long"
	case "bookingid":
		return "must look like BK-XXXX-XXX"
	case "requestid":
		return "must be 24 lowercase hex characters"
	case "datekey":
		return "must be a date in YYYY-MM-DD format"
	case "slot":
		return "must be one of MORNING, AFTERNOON, NIGHT"
	case "servicetype":
		return "unknown service"
	case "money":
		return "must be a non-negative amount with at most two decimals"
	}
	return fe.Error()
}

// Summary joins the messages into one line for error responses.
func Summary(err error) string {
	msgs := Messages(err)
	if len(msgs) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(msgs))
	for field, msg := range msgs {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
