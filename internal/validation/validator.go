package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// slugPattern matches lowercase alphanumerics and hyphens
var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// reservedSlugs are subdomain labels that can never identify a tenant
var reservedSlugs = map[string]struct{}{
	"www":       {},
	"api":       {},
	"app":       {},
	"admin":     {},
	"mail":      {},
	"ftp":       {},
	"localhost": {},
	"platform":  {},
	"static":    {},
	"assets":    {},
}

// ValidateSlug checks the tenant slug invariant: lowercase alphanumerics and
// hyphens, length at least 3, no leading or trailing hyphen, not reserved.
func ValidateSlug(slug string) error {
	if len(slug) < 3 {
		return fmt.Errorf("slug must be at least 3 characters")
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("slug may contain only lowercase letters, digits and hyphens")
	}
	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return fmt.Errorf("slug must not start or end with a hyphen")
	}
	if _, ok := reservedSlugs[slug]; ok {
		return fmt.Errorf("slug %q is reserved", slug)
	}
	return nil
}

// IsReservedSlug reports whether a label is in the reserved-word set
func IsReservedSlug(slug string) bool {
	_, ok := reservedSlugs[slug]
	return ok
}

// Validator validates structs via `validate` tags
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates a struct
func (v *Validator) Validate(s interface{}) error {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validate expects a struct")
	}

	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		tag := fieldType.Tag.Get("validate")

		if tag == "" {
			continue
		}

		if err := v.validateField(field, tag); err != nil {
			return fmt.Errorf("%s: %w", fieldType.Name, err)
		}
	}

	return nil
}

// validateField validates a single field
func (v *Validator) validateField(field reflect.Value, tag string) error {
	rules := strings.Split(tag, ",")

	for _, rule := range rules {
		parts := strings.SplitN(rule, "=", 2)
		ruleName := parts[0]

		switch ruleName {
		case "required":
			if field.IsZero() {
				return fmt.Errorf("field is required")
			}

		case "email":
			if field.Kind() == reflect.String && field.String() != "" {
				email := field.String()
				if !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
					return fmt.Errorf("invalid email format")
				}
			}

		case "slug":
			if field.Kind() == reflect.String && field.String() != "" {
				if err := ValidateSlug(field.String()); err != nil {
					return err
				}
			}

		case "min":
			if len(parts) < 2 {
				continue
			}
			min, err := strconv.Atoi(parts[1])
			if err != nil {
				continue
			}
			if field.Kind() == reflect.String && len(field.String()) < min {
				return fmt.Errorf("minimum length is %d", min)
			}

		case "max":
			if len(parts) < 2 {
				continue
			}
			max, err := strconv.Atoi(parts[1])
			if err != nil {
				continue
			}
			if field.Kind() == reflect.String && len(field.String()) > max {
				return fmt.Errorf("maximum length is %d", max)
			}
		}
	}

	return nil
}
