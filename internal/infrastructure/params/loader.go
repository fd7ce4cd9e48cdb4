package params

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/stack-service/circle_transfer/internal/domain/entities"
	apperrors "github.com/stack-service/circle_transfer/pkg/errors"
)

// DefaultFile is the parameter file read when none is given
const DefaultFile = "test-params.json"

// ChainChecker reports whether a chain identifier is supported
type ChainChecker func(chain string) bool

// Load reads and validates the test parameter file at path. Chains are
// upper-cased before they are checked. Every failure is an input error.
func Load(path string, isSupported ChainChecker) (*entities.TestParameters, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.WrapInput(err, fmt.Sprintf("cannot read parameter file %s", path)).
			WithDetail("path", path)
	}

	params, err := Parse(data, isSupported)
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok {
			appErr.WithDetail("path", path)
		}
		return nil, err
	}
	return params, nil
}

// Parse decodes and validates parameter JSON. Unknown fields are rejected.
func Parse(data []byte, isSupported ChainChecker) (*entities.TestParameters, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var params entities.TestParameters
	if err := decoder.Decode(&params); err != nil {
		return nil, apperrors.WrapInput(err, "parameter file is not valid JSON")
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, apperrors.Input("parameter file must contain a single JSON object")
	}

	params.SandboxDestination = normalize(params.SandboxDestination)
	params.ProductionDestination = normalize(params.ProductionDestination)
	params.Amount = strings.TrimSpace(params.Amount)
	params.Currency = strings.ToUpper(strings.TrimSpace(params.Currency))

	ctx := context.WithValue(context.Background(), chainCheckerKey{}, isSupported)
	if err := validate.StructCtx(ctx, &params); err != nil {
		return nil, validationError(err)
	}
	return &params, nil
}

func normalize(d entities.Destination) entities.Destination {
	return entities.Destination{
		Address: strings.TrimSpace(d.Address),
		Chain:   strings.ToUpper(strings.TrimSpace(d.Chain)),
	}
}

type chainCheckerKey struct{}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidationCtx("supported_chain", supportedChain); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("usd_amount", usdAmount); err != nil {
		panic(err)
	}
	return v
}

func supportedChain(ctx context.Context, fl validator.FieldLevel) bool {
	isSupported, _ := ctx.Value(chainCheckerKey{}).(ChainChecker)
	if isSupported == nil {
		return true
	}
	return isSupported(fl.Field().String())
}

func usdAmount(fl validator.FieldLevel) bool {
	_, err := entities.ParseAmount(fl.Field().String())
	return err == nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.WrapInput(err, "invalid parameter file")
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fieldMessage(fe))
	}

	first := fieldErrs[0]
	return apperrors.WrapInput(err, strings.Join(messages, "; ")).
		WithDetail("field", first.Namespace()).
		WithDetail("rule", first.Tag())
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "TestParameters.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "supported_chain":
		return fmt.Sprintf("%s %q is not supported", field, fe.Value())
	case "usd_amount":
		return fmt.Sprintf("%s %q must be positive with at most two decimal places", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
