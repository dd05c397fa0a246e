package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Request is one entry of a mixed batch.
type Request struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
}

type ChannelByHandleParams struct {
	Handle string   `json:"handle" validate:"required"`
	Parts  []string `json:"parts" validate:"omitempty,dive,required"`
}

type ChannelsByIDParams struct {
	ChannelIDs []string `json:"channel_ids" validate:"required,min=1,dive,required"`
	Parts      []string `json:"parts" validate:"omitempty,dive,required"`
}

type VideosByIDParams struct {
	VideoIDs []string `json:"video_ids" validate:"required,min=1,dive,required"`
	Parts    []string `json:"parts" validate:"omitempty,dive,required"`
}

type ChannelRSSParams struct {
	ChannelID string `json:"channel_id" validate:"required"`
}

type RecentVideosParams struct {
	Handle          string `json:"handle" validate:"required_without=ChannelHandle"`
	ChannelHandle   string `json:"channel_handle"`
	MaxVideos       int    `json:"max_videos" validate:"gte=0,lte=50"`
	IncludeDetailed bool   `json:"include_detailed"`
}

func (p RecentVideosParams) handle() string {
	if p.Handle != "" {
		return p.Handle
	}
	return p.ChannelHandle
}

// FieldError describes one failed constraint.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Param != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", f.Field, f.Tag, f.Param))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", f.Field, f.Tag))
		}
	}
	return "invalid params: " + strings.Join(parts, ", ")
}

// FieldErrors flattens validator errors. It returns nil for any other error.
func FieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
	}
	return fields
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeParams unmarshals raw into dst and validates it.
func decodeParams(v *validator.Validate, raw json.RawMessage, dst any) error {
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("invalid params: %w", err)
		}
	}

	if err := v.Struct(dst); err != nil {
		if fields := FieldErrors(err); fields != nil {
			return &ValidationError{Fields: fields}
		}
		return err
	}
	return nil
}
