package domain

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// ValidationError lists the fields of a form that failed validation,
// keyed by their form name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+e.Fields[name])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

// normalizer is implemented by forms that trim their input before checks.
type normalizer interface {
	Normalize()
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name := f.Tag.Get("form"); name != "" && name != "-" {
				return name
			}
			return f.Name
		})
		_ = v.RegisterValidation("research_area", oneOfList(ResearchAreas))
		_ = v.RegisterValidation("complaint_category", oneOfList(ComplaintCategories))
		validate = v
	})
	return validate
}

func oneOfList(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return lo.Contains(allowed, fl.Field().String())
	}
}

// Validate normalizes form (when it knows how) and checks it. form must be
// a pointer to one of the form structs. It returns a *ValidationError when
// fields are missing or invalid.
func Validate(form any) error {
	if n, ok := form.(normalizer); ok {
		n.Normalize()
	}

	err := instance().Struct(form)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate form: %w", err)
	}

	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		fields[fe.Field()] = message(fe)
	}
	return &ValidationError{Fields: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "research_area", "complaint_category":
		return "is not a known option"
	default:
		return "is invalid"
	}
}
