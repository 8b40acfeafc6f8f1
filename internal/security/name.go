// Package security validates names that arrive from outside the process
// before they are used to build filesystem paths.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyName    = errors.New("empty name not allowed")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrPathEscapes  = errors.New("name escapes directory")
	ErrNotBaseName  = errors.New("name must not contain a directory")
)

// ValidateName checks that name is a single local path element, so that
// joining it to a directory can only ever address a file directly in that
// directory. It rejects:
//   - empty names and "."
//   - absolute paths
//   - names that escape the directory (using ..)
//   - names with a directory part, in either slash style
//   - Windows reserved names (CON, NUL, etc.)
func ValidateName(name string) error {
	if name == "" || name == "." {
		return ErrEmptyName
	}

	if strings.ContainsAny(name, `/\`) {
		if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
			return fmt.Errorf("%w: %s", ErrAbsolutePath, name)
		}
		return fmt.Errorf("%w: %s", ErrNotBaseName, name)
	}

	if !filepath.IsLocal(name) {
		return fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}

	return nil
}

// JoinName validates name and joins it to dir
func JoinName(dir, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
