package session

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidName is wrapped by every ValidateName failure.
var ErrInvalidName = errors.New("invalid session name")

// MaxNameLen keeps the daemon socket path under the Unix limit.
const MaxNameLen = 32

var nameRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateName checks a session name. Names become directories under
// ~/.trueque/sessions and a leading dash would read as a flag.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > MaxNameLen:
		return fmt.Errorf("%w %q: longer than %d characters", ErrInvalidName, name, MaxNameLen)
	case !nameRegexp.MatchString(name):
		return fmt.Errorf("%w %q: use lowercase letters, digits, '-' and '_', starting with a letter or digit", ErrInvalidName, name)
	}
	return nil
}
