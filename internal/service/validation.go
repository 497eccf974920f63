package service

import (
	"fmt"
	"regexp"
	"strings"

	"dataroom/internal/config"
	"dataroom/internal/domain"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var noSlash = validation.Match(regexp.MustCompile(`^[^/\\]+$`)).Error("name cannot contain slashes")

// notBlank rejects names that are only whitespace
var notBlank = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("cannot be blank")
	}
	return nil
})

func folderNameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		notBlank,
		validation.RuneLength(1, config.MaxFolderNameLength),
		noSlash,
	}
}

func fileNameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		notBlank,
		validation.RuneLength(1, config.MaxFileNameLength),
		noSlash,
	}
}

func dataRoomNameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		notBlank,
		validation.RuneLength(config.MinDataRoomNameLength, config.MaxDataRoomNameLength),
	}
}

// validationErr wraps an ozzo error as a domain validation error
func validationErr(err error) error {
	if err == nil {
		return nil
	}
	return &domain.ValidationError{Message: err.Error()}
}

// emptyToNil normalizes "" parent IDs to the room root
func emptyToNil(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	return id
}
