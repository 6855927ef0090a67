package attendance

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Widths of the stored columns, in characters.
const (
	maxIdentityIDLength = 20
	maxNameLength       = 100
	maxDepartmentLength = 50
	maxSemesterLength   = 20
	maxSectionLength    = 10
	maxCourseLength     = 20
)

// NormalizeName validates a person name and returns it in NFC form with
// collapsed whitespace. Only letters and spaces are accepted.
func NormalizeName(name string) (string, error) {
	name = strings.Join(strings.Fields(norm.NFC.String(name)), " ")
	if name == "" {
		return "", ErrInvalidName
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidName, maxNameLength)
	}
	for _, r := range name {
		if r != ' ' && !unicode.IsLetter(r) {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return name, nil
}

// ValidateIdentityID checks that an id is non-empty, short enough for the
// store and safe to use as a directory name.
func ValidateIdentityID(id string) error {
	if id == "" || utf8.RuneCountInString(id) > maxIdentityIDLength {
		return fmt.Errorf("%w: must be 1-%d characters", ErrInvalidIdentity, maxIdentityIDLength)
	}
	for _, r := range id {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidIdentity, id, r)
		}
	}
	return nil
}

// NormalizeCourse trims a course name and falls back to def when it is
// empty. Courses longer than the ledger column are rejected.
func NormalizeCourse(course, def string) (string, error) {
	course = strings.TrimSpace(course)
	if course == "" {
		return def, nil
	}
	if utf8.RuneCountInString(course) > maxCourseLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidCourse, maxCourseLength)
	}
	return course, nil
}

func checkLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return fmt.Errorf("%w: %s is longer than %d characters", ErrFieldTooLong, field, limit)
	}
	return nil
}
