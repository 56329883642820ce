package allocation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxQuantity bounds the quantity of a single contract.
const MaxQuantity = 1000

// MaxCodeLength bounds facility and equipment codes.
const MaxCodeLength = 50

var codePattern = regexp.MustCompile(`^[A-Z0-9-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("code", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return len(s) <= MaxCodeLength && codePattern.MatchString(s)
	})
	_ = v.RegisterValidation("quantity", func(fl validator.FieldLevel) bool {
		q := fl.Field().Int()
		return q >= 1 && q <= MaxQuantity
	})
	return v
}

// CreateContractCommand places quantity units of an equipment type in a
// facility.
type CreateContractCommand struct {
	FacilityCode  string `json:"facility_code" validate:"required,code"`
	EquipmentCode string `json:"equipment_code" validate:"required,code"`
	Quantity      int    `json:"quantity" validate:"quantity"`
}

// UpdateQuantityCommand changes the quantity of an existing contract.
// ContractID is the textual id; one that does not parse is reported as
// not found.
type UpdateQuantityCommand struct {
	ContractID string `json:"contract_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"quantity"`
}

// DeactivateContractCommand ends an active contract.
type DeactivateContractCommand struct {
	ContractID string `json:"contract_id" validate:"required"`
}

// validateCommand runs struct validation and converts failures into a
// KindInvalidInput error listing each offending field.
func validateCommand(cmd interface{}) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalidInput(err.Error())
	}
	fields := make([]FieldError, 0, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		m := fieldMessage(fe)
		fields = append(fields, FieldError{Field: fe.Field(), Message: m})
		msgs = append(msgs, m)
	}
	return invalidInput(strings.Join(msgs, "; "), fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "code":
		return fmt.Sprintf("Field '%s' must be at most %d uppercase letters, digits or hyphens", fe.Field(), MaxCodeLength)
	case "quantity":
		return fmt.Sprintf("Field '%s' must be between 1 and %d", fe.Field(), MaxQuantity)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Field '%s' must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("Field '%s' must be at least %s", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Field '%s' must not exceed %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("Field '%s' must not exceed %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' failed on the '%s' rule", fe.Field(), fe.Tag())
	}
}
