package tester

import (
	"errors"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/http/httpguts"

	"github.com/prasenjit/route-explorer/internal/models"
)

var validate = newValidator()

// requestShape is the validated view of a TestRequest
type requestShape struct {
	URL     string `validate:"required,httpurl"`
	Method  string `validate:"httpmethod"`
	Timeout int    `validate:"min=1,max=300"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("httpurl", validateHTTPURL); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("httpmethod", validateHTTPMethod); err != nil {
		panic(err)
	}
	return v
}

// validateHTTPURL accepts absolute http and https URLs with a host
func validateHTTPURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func validateHTTPMethod(fl validator.FieldLevel) bool {
	return models.IsHTTPMethod(fl.Field().String())
}

// Validate checks a request before any network I/O. The method must already
// be uppercase.
func Validate(req models.TestRequest) error {
	shape := requestShape{
		URL:     strings.TrimSpace(req.URL),
		Method:  req.Method,
		Timeout: req.TimeoutSeconds,
	}
	err := validate.Struct(shape)
	if err == nil {
		return validateHeaders(req.Headers)
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return models.NewValidationError("Invalid request")
	}
	return models.NewValidationError("%s", validationMessage(verrs[0]))
}

// validateHeaders rejects header names and values net/http would refuse to send
func validateHeaders(headers map[string]string) error {
	for k, v := range headers {
		if !httpguts.ValidHeaderFieldName(k) {
			return models.NewValidationError("Invalid header name %q", k)
		}
		if !httpguts.ValidHeaderFieldValue(v) {
			return models.NewValidationError("Invalid value for header %s", k)
		}
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "URL":
		if fe.Tag() == "required" {
			return "URL is required"
		}
		return "Invalid URL format"
	case "Method":
		return "Invalid HTTP method"
	case "Timeout":
		return "Timeout must be between 1 and 300 seconds"
	default:
		return fe.Field() + " is invalid"
	}
}

// Prepare normalizes a caller-supplied request and validates it. An empty
// method means GET and a zero timeout takes defaultTimeout.
func Prepare(req models.TestRequest, defaultTimeout int) (models.TestRequest, error) {
	req.URL = strings.TrimSpace(req.URL)
	req.Method = strings.ToUpper(strings.TrimSpace(req.Method))
	if req.Method == "" {
		req.Method = "GET"
	}
	if req.TimeoutSeconds == 0 {
		req.TimeoutSeconds = defaultTimeout
	}
	if err := Validate(req); err != nil {
		return req, err
	}
	return req, nil
}
