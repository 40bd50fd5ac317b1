package dto

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cesargomez89/tidarr/internal/constants"
	"github.com/cesargomez89/tidarr/internal/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) ToMap() map[string]string {
	return map[string]string{e.Field: e.Message}
}

func ToMap(errs []ValidationError) map[string]string {
	result := make(map[string]string)
	for _, e := range errs {
		result[e.Field] = e.Message
	}
	return result
}

func ToResponse(errs []ValidationError) string {
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func validateID(id string) []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(id) == "" {
		errs = append(errs, ValidationError{Field: "id", Message: "is required"})
	}
	return errs
}

func validateType(t string) []ValidationError {
	var errs []ValidationError
	if t == "" {
		errs = append(errs, ValidationError{Field: "type", Message: "is required"})
	} else if !domain.ItemType(t).Valid() {
		errs = append(errs, ValidationError{Field: "type", Message: fmt.Sprintf("unknown item type %q", t)})
	}
	return errs
}

// validateURL accepts an empty value: virtual items (mixes, favorites) are
// resolved to a URL by the download step.
func validateURL(urlVal string) []ValidationError {
	var errs []ValidationError
	if urlVal != "" {
		u, err := url.ParseRequestURI(urlVal)
		if err != nil || u.Host == "" {
			errs = append(errs, ValidationError{Field: "url", Message: "invalid URL format"})
		}
	}
	return errs
}

func validateQuality(quality string) []ValidationError {
	var errs []ValidationError
	switch quality {
	case "", constants.QualityLow, constants.QualityNormal, constants.QualityHigh, constants.QualityMaster:
	default:
		errs = append(errs, ValidationError{Field: "quality", Message: "must be one of low, normal, high, master"})
	}
	return errs
}

func validateSource(source string) []ValidationError {
	var errs []ValidationError
	switch source {
	case "", domain.SourceTidarr, domain.SourceLidarr:
	default:
		errs = append(errs, ValidationError{Field: "source", Message: "must be 'tidarr' or 'lidarr'"})
	}
	return errs
}
