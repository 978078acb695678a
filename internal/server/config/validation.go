package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks cfg against its struct tags and the rules tags cannot
// express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	if cfg.BlobBackend == "minio" && cfg.S3BaseEndpoint == "" {
		return errors.New("s3_base_endpoint: required for the minio backend")
	}
	if cfg.PurgeRunTimeout > cfg.PurgeInterval {
		return fmt.Errorf("purge_run_timeout: must not exceed purge_interval (%s)", cfg.PurgeInterval)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
