package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report koanf paths (docs.oauth.tokenurl) instead of Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("koanf"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks struct constraints first and then the rules that span several fields.
// The returned error is a *ConfigError for the first violation.
func Validate(cfg *Config) error {
	if err := structValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return err
	}

	if err := validateGateway(&cfg.Gateway); err != nil {
		return err
	}
	return validateOAuth(&cfg.Docs.OAuth)
}

func fieldError(fe validator.FieldError) *ConfigError {
	path := fe.Namespace()
	if _, rest, ok := strings.Cut(path, "."); ok {
		path = rest
	}
	path = strings.ToLower(path)

	switch fe.Tag() {
	case "required", "required_if":
		return NewMissingFieldError(path, envName(path), path)
	case "oneof":
		return NewInvalidFieldError(path, fmt.Sprintf("invalid value %v", fe.Value()), strings.Fields(fe.Param()))
	case "min", "max", "gt":
		return NewInvalidFieldError(path, fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param()), nil)
	default:
		return NewInvalidFieldError(path, fmt.Sprintf("failed %s validation", fe.Tag()), nil)
	}
}

func validateGateway(cfg *GatewayConfig) error {
	if cfg.ServiceIDRegex != "" {
		if _, err := regexp.Compile(cfg.ServiceIDRegex); err != nil {
			return NewInvalidFieldError("gateway.serviceidregex", "invalid regular expression: "+err.Error(), nil)
		}
	}
	if cfg.Prefix != "" && (!strings.HasPrefix(cfg.Prefix, "/") || strings.HasSuffix(cfg.Prefix, "/")) {
		return NewInvalidFieldError("gateway.prefix", "must start with / and not end with /", nil)
	}

	seen := make(map[string]struct{}, len(cfg.Routes))
	for i, r := range cfg.Routes {
		if _, dup := seen[r.ID]; dup {
			return NewInvalidFieldError(fmt.Sprintf("gateway.routes[%d].id", i), "duplicate route id "+r.ID, nil)
		}
		seen[r.ID] = struct{}{}
	}
	if cfg.Enabled && len(cfg.Routes) == 0 {
		return NewMissingFieldError("gateway.routes", envName("gateway.routes"), "gateway.routes")
	}
	return nil
}

func validateOAuth(cfg *OAuthConfig) error {
	if cfg.Enabled && cfg.GrantType == GrantAuthorizationCode && cfg.AuthorizationURL == "" {
		return NewMissingFieldError("docs.oauth.authorizationurl", envName("docs.oauth.authorizationurl"), "docs.oauth.authorizationurl")
	}
	return nil
}
