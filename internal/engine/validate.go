package engine

import (
	"regexp"
	"strings"

	"dataroom/internal/config"
	"dataroom/internal/domain"
	"dataroom/internal/tree"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var noSlash = validation.Match(regexp.MustCompile(`^[^/\\]+$`)).Error("cannot contain slashes")

// checkName applies the server's naming rules before anything is sent
func checkName(name string, kind tree.Kind) error {
	max := config.MaxFolderNameLength
	if kind == tree.KindFile {
		max = config.MaxFileNameLength
	}
	err := validation.Validate(strings.TrimSpace(name),
		validation.Required,
		validation.RuneLength(1, max),
		noSlash,
	)
	if err != nil {
		return &domain.ValidationError{Message: "name " + err.Error()}
	}
	return nil
}
