package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	ensureerrors "github.com/ensureops/ensure/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	desiredStates = map[DesiredState]struct{}{
		StatePresent:   {},
		StateStarted:   {},
		StateStopped:   {},
		StateRestarted: {},
		StateAbsent:    {},
	}
	monitorTypes = map[MonitorType]struct{}{
		MonitorMetricAlert:  {},
		MonitorServiceCheck: {},
	}
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("desired_state", func(fl validator.FieldLevel) bool {
			_, ok := desiredStates[DesiredState(fl.Field().String())]
			return ok
		})

		_ = v.RegisterValidation("monitor_type", func(fl validator.FieldLevel) bool {
			_, ok := monitorTypes[MonitorType(fl.Field().String())]
			return ok
		})

		validateInst = v
	})

	return validateInst
}

// ValidateVM performs schema validation on a VM declaration.
func ValidateVM(decl *VMDeclaration) error {
	if decl == nil {
		return ensureerrors.NewValidationError("vm", "declaration is nil", nil)
	}

	if err := validatorInstance().Struct(decl); err != nil {
		return convertValidationError(err)
	}

	return nil
}

// ValidateMonitor performs schema and cross-field validation on a monitor
// declaration. Everything here runs before any remote call.
func ValidateMonitor(decl *MonitorDeclaration) error {
	if decl == nil {
		return ensureerrors.NewValidationError("monitor", "declaration is nil", nil)
	}

	if err := validatorInstance().Struct(decl); err != nil {
		return convertValidationError(err)
	}

	// Thresholds may only be set for service checks.
	if decl.Type == MonitorMetricAlert && decl.Thresholds != nil {
		return ensureerrors.NewValidationError("thresholds", "thresholds may not be set for metric monitors", nil)
	}

	return nil
}

func convertValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrs) == 0 {
		return ensureerrors.NewValidationError("", err.Error(), err)
	}

	first := validationErrs[0]
	field := strings.ToLower(first.Namespace())
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}

	message := fmt.Sprintf("failed %q constraint", first.Tag())
	if first.Param() != "" {
		message = fmt.Sprintf("failed %q constraint (%s)", first.Tag(), first.Param())
	}

	return ensureerrors.NewValidationError(field, message, err)
}
