package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/seenimoa/stocklens/pkg/models"
)

// validate is shared; validator caches struct metadata and is safe for
// concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names so errors match what the model emitted.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeContext decodes a context analysis.
func DecodeContext(text string) (*models.ContextAnalysis, error) {
	return decode[models.ContextAnalysis](text)
}

// DecodeTrend decodes a trend analysis.
func DecodeTrend(text string) (*models.TrendAnalysis, error) {
	return decode[models.TrendAnalysis](text)
}

// DecodeCompetitor decodes a competitor analysis.
func DecodeCompetitor(text string) (*models.CompetitorAnalysis, error) {
	return decode[models.CompetitorAnalysis](text)
}

// Decode decodes text into the result type for kind: *models.ContextAnalysis,
// *models.TrendAnalysis or *models.CompetitorAnalysis.
func Decode(kind models.AnalysisKind, text string) (any, error) {
	switch kind {
	case models.KindContext:
		return DecodeContext(text)
	case models.KindTrend:
		return DecodeTrend(text)
	case models.KindCompetitor:
		return DecodeCompetitor(text)
	default:
		return nil, &InputError{Message: fmt.Sprintf("unknown analysis kind %q", kind)}
	}
}

// decode unmarshals text into T and checks the schema. Unknown fields are
// ignored; missing required fields and type mismatches fail. A result is
// returned only when it is complete.
func decode[T any](text string) (*T, error) {
	var out T
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, &DecodeError{RawText: text, Cause: err}
	}
	if err := validate.Struct(&out); err != nil {
		return nil, &DecodeError{RawText: text, Cause: schemaError(err)}
	}
	return &out, nil
}

// schemaError flattens validator output into one readable error.
func schemaError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(fields, ", "))
}
