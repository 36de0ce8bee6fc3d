package handlers

import (
	"clipwatch/core"
	"clipwatch/models"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRule checks a rule before it is stored.
func ValidateRule(rule models.Rule) error {
	if err := validate.Struct(rule); err != nil {
		return describeValidationError(err)
	}
	if rule.RuleType.IsHeaderType() && strings.TrimSpace(rule.HeaderName) == "" {
		return fmt.Errorf("headerName is required for %s rules", rule.RuleType)
	}
	if rule.RuleType == models.RuleTypeRequestParam && strings.TrimSpace(rule.ParamName) == "" {
		return errors.New("paramName is required for requestParam rules")
	}
	return core.ValidatePattern(rule.URLPattern)
}

func ValidateGroup(group models.RuleGroup) error {
	if err := validate.Struct(group); err != nil {
		return describeValidationError(err)
	}
	return nil
}

func describeValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
