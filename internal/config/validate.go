package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their yaml key so errors match what the user wrote.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("duration", validDuration)
	_ = v.RegisterValidation("timeout", validTimeout)
	return v
}

func validDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// validTimeout accepts an empty string (use the default) or a positive
// duration no larger than the tag parameter.
func validTimeout(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return false
	}
	limit, err := time.ParseDuration(fl.Param())
	return err == nil && d <= limit
}

// Validate checks cfg and reports every invalid field in one error.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return validateNotify(cfg)
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func validateNotify(cfg *Config) error {
	for _, n := range cfg.Notify {
		if _, ok := cfg.Services[n.Service]; !ok {
			return fmt.Errorf("invalid config: notify references unknown service %q", n.Service)
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		if field == "target.domain" {
			return field + " is required (set it in the config file, pass --domain, or run `reachable init`)"
		}
		return field + " is required"
	case "timeout":
		return fmt.Sprintf("%s must be a positive duration no longer than %s (got %q)", field, fe.Param(), fe.Value())
	case "duration":
		return fmt.Sprintf("%s must be a positive duration (got %q)", field, fe.Value())
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s (got %v)", field, map[string]string{"min": ">=", "max": "<="}[fe.Tag()], fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got %v)", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation (got %v)", field, fe.Tag(), fe.Value())
	}
}
