package validation

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrFormatRequired is returned when the export format is empty.
var ErrFormatRequired = errors.New("export format is required")

// ErrFormatUnsupported is returned when the export format is not xlsx, pdf or csv.
var ErrFormatUnsupported = errors.New("unsupported export format")

// ErrZeroFillInvalid is returned when zero_fill is not a boolean.
var ErrZeroFillInvalid = errors.New("zero_fill must be true or false")

var validate = validator.New()

type exportRequest struct {
	Format string `validate:"required,oneof=xlsx pdf csv"`
}

type chartQuery struct {
	ZeroFill string `validate:"omitempty,oneof=true false 1 0"`
}

// ValidateExportFormat trims and lowercases the format and checks it is one of the
// supported export formats. Returns the normalised format or an error suitable for
// 400 INVALID_FORMAT responses.
func ValidateExportFormat(input string) (string, error) {
	req := exportRequest{Format: strings.ToLower(strings.TrimSpace(input))}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "required" {
			return "", ErrFormatRequired
		}
		return "", ErrFormatUnsupported
	}
	return req.Format, nil
}

// ParseZeroFill reads the zero_fill query value. An empty value yields def.
func ParseZeroFill(input string, def bool) (bool, error) {
	q := chartQuery{ZeroFill: strings.ToLower(strings.TrimSpace(input))}
	if err := validate.Struct(q); err != nil {
		return false, ErrZeroFillInvalid
	}
	if q.ZeroFill == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(q.ZeroFill)
	if err != nil {
		return false, ErrZeroFillInvalid
	}
	return v, nil
}
