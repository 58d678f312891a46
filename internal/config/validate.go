package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spiffe/go-spiffe/v2/spiffeid"

	coreErrors "github.com/sufield/courier/internal/core/errors"
)

func newValidator() *validator.Validate {
	validate := validator.New()

	_ = validate.RegisterValidation("file_exists", validateFileExists)
	_ = validate.RegisterValidation("trust_domain", validateTrustDomain)
	_ = validate.RegisterValidation("tls_version", validateTLSVersion)
	_ = validate.RegisterValidation("cipher_suite", validateCipherSuite)
	validate.RegisterStructValidation(validateVersionRange, TLSFiles{})

	return validate
}

// Validate checks every field and reports each failure as a ValidationError.
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate configuration: %w", err)
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, coreErrors.NewValidationError(fe.Namespace(), fe.Value(), describe(fe)))
	}
	return errors.Join(errs...)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_with":
		return fmt.Sprintf("is required when %s is set", fe.Param())
	case "excluded_with":
		return fmt.Sprintf("cannot be combined with %s", fe.Param())
	case "file_exists":
		return "file does not exist"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gtefield":
		return fmt.Sprintf("must not be lower than %s", fe.Param())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}

// Empty values pass the custom validators below; required tags cover presence.

func validateFileExists(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if path == "" {
		return true
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func validateTrustDomain(fl validator.FieldLevel) bool {
	td := fl.Field().String()
	if td == "" {
		return true
	}
	_, err := spiffeid.TrustDomainFromString(td)
	return err == nil
}

func validateTLSVersion(fl validator.FieldLevel) bool {
	v := TLSVersion(fl.Field().Uint())
	return v == 0 || v.known()
}

func validateCipherSuite(fl validator.FieldLevel) bool {
	return CipherSuite(fl.Field().Uint()).known()
}

func validateVersionRange(sl validator.StructLevel) {
	files, ok := sl.Current().Interface().(TLSFiles)
	if !ok {
		return
	}
	if files.MinVersion != 0 && files.MaxVersion != 0 && files.MaxVersion < files.MinVersion {
		sl.ReportError(files.MaxVersion, "MaxVersion", "MaxVersion", "gtefield", "MinVersion")
	}
}
