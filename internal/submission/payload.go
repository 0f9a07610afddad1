package submission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/assessment"
)

// Payload is the JSON body of a submission.
type Payload struct {
	Email   string `json:"email" validate:"required,email,max=254"`
	Company string `json:"company" validate:"required,notblank,max=100"`
	Sector  string `json:"sector" validate:"omitempty,max=100"`
	Region  string `json:"region" validate:"omitempty,max=100"`
	Consent *bool  `json:"consent" validate:"required"`

	Q1 []string `json:"q1" validate:"required,min=1,max=6,dive,required,notblank,max=64"`
	Q2 string   `json:"q2" validate:"required,catalog=q2"`
	Q3 string   `json:"q3" validate:"required,catalog=q3"`
	Q4 []string `json:"q4" validate:"required,min=1,max=5,dive,required,notblank,max=64"`
	Q5 string   `json:"q5" validate:"required,catalog=q5"`
	Q6 string   `json:"q6" validate:"required,catalog=q6"`
	Q7 string   `json:"q7" validate:"required,catalog=q7"`
	Q8 []string `json:"q8" validate:"required,min=1,max=3,dive,required,notblank,max=64"`
	Q9 string   `json:"q9" validate:"required,catalog=q9"`
}

// Answers extracts the answer set.
func (p Payload) Answers() assessment.Answers {
	return assessment.Answers{
		Q1: p.Q1, Q2: p.Q2, Q3: p.Q3, Q4: p.Q4, Q5: p.Q5,
		Q6: p.Q6, Q7: p.Q7, Q8: p.Q8, Q9: p.Q9,
	}
}

// Profile extracts the free-text business context.
func (p Payload) Profile() assessment.Profile {
	return assessment.Profile{
		Company: strings.TrimSpace(p.Company),
		Sector:  strings.TrimSpace(p.Sector),
		Region:  strings.TrimSpace(p.Region),
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func payloadValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("notblank", validators.NotBlank)
		_ = v.RegisterValidation("catalog", func(fl validator.FieldLevel) bool {
			q, ok := assessment.Lookup(fl.Param())
			if !ok {
				return false
			}
			value := strings.TrimSpace(fl.Field().String())
			for _, t := range q.Tokens() {
				if t == value {
					return true
				}
			}
			return false
		})
		validate = v
	})
	return validate
}

// DecodePayload strictly decodes and validates a submission body. Every
// violation is reported; a payload is either fully valid or rejected.
func DecodePayload(raw []byte) (*Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, &ValidationError{Messages: []string{decodeMessage(err)}}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, &ValidationError{Messages: []string{"request body must contain a single JSON object"}}
	}

	err := payloadValidator().Struct(p)
	if err == nil {
		return &p, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, &ValidationError{Messages: []string{err.Error()}}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return nil, &ValidationError{Messages: msgs}
}

func decodeMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		return fmt.Sprintf("%s has the wrong type", typeErr.Field)
	case errors.As(err, &syntaxErr):
		return "request body is not valid JSON"
	case errors.Is(err, io.EOF):
		return "request body is empty"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return strings.TrimPrefix(err.Error(), "json: ") + " is not allowed"
	default:
		return "request body is not valid JSON"
	}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	isList := fe.Kind() == reflect.Slice
	switch fe.Tag() {
	case "required":
		if isList {
			return field + " requires at least one selection"
		}
		return field + " is required"
	case "notblank":
		return field + " must not be blank"
	case "email":
		return field + " must be a valid email address"
	case "min":
		if isList {
			return fmt.Sprintf("%s requires at least %s selection(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		if isList {
			return fmt.Sprintf("%s accepts at most %s selections", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "catalog":
		q, _ := assessment.Lookup(fe.Param())
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(q.Tokens(), ", "))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
