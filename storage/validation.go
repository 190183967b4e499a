package storage

import "regexp"

var (
	// validNameRE matches player names: 3-16 letters, digits or underscores.
	validNameRE = regexp.MustCompile(`^[a-zA-Z0-9_]{3,16}$`)
)

// InvalidNameError is returned when a player name fails validation.
type InvalidNameError struct {
	Name string
}

func (e InvalidNameError) Error() string {
	return "Invalid name. Must be 3-16 characters and contain only letters, numbers, or underscores."
}

// ValidateName returns nil or an InvalidNameError.
func ValidateName(name string) error {
	if !validNameRE.MatchString(name) {
		return InvalidNameError{Name: name}
	}
	return nil
}
