package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"examslots/pkg/logger"
	"examslots/pkg/model"

	"github.com/go-playground/validator/v10"
)

// Slot ids end up inside slot keys and Redis hash tags.
var slotIDRegex = regexp.MustCompile(`^[^\s#{}]+$`)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details flattens the errors into a field to message map for API responses.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

type ReservationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewReservationValidator(log *logger.Logger) *ReservationValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("rfc3339", validateRFC3339); err != nil {
		log.Fatal("Failed to register 'rfc3339' validator", "error", err)
	}
	if err := v.RegisterValidation("slot_id", validateSlotID); err != nil {
		log.Fatal("Failed to register 'slot_id' validator", "error", err)
	}

	log.Debug("Reservation validator initialized successfully")

	return &ReservationValidator{
		validate: v,
		logger:   log,
	}
}

func validateRFC3339(fl validator.FieldLevel) bool {
	_, err := model.CanonicalBookingTime(fl.Field().String())
	return err == nil
}

func validateSlotID(fl validator.FieldLevel) bool {
	return slotIDRegex.MatchString(fl.Field().String())
}

func (v *ReservationValidator) ValidateReserve(req *model.ReserveSlotRequest) error {
	return v.validateStruct(req)
}

func (v *ReservationValidator) ValidateRelease(req *model.ReleaseSlotRequest) error {
	return v.validateStruct(req)
}

func (v *ReservationValidator) ValidateSlotQuery(q *model.SlotQuery) error {
	return v.validateStruct(q)
}

// ValidateExaminerID checks an examiner id outside of a request struct.
func (v *ReservationValidator) ValidateExaminerID(examinerProfileID string) error {
	if err := v.validate.Var(examinerProfileID, "required,max=128,slot_id"); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return ValidationErrors{{
				Field:   "examiner_profile_id",
				Message: translate(validationErrs[0], "examiner_profile_id"),
			}}
		}
		return err
	}
	return nil
}

func (v *ReservationValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ReservationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors
	for _, err := range errs {
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: translate(err, err.Field()),
		})
	}
	return validationErrors
}

func translate(err validator.FieldError, field string) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, err.Param())
	case "rfc3339":
		return fmt.Sprintf("%s must be an RFC 3339 timestamp (e.g., 2025-06-01T14:00:00Z)", field)
	case "slot_id":
		return fmt.Sprintf("%s must not contain whitespace, '#', '{' or '}'", field)
	default:
		return err.Error()
	}
}
