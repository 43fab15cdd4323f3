package enums

import "fmt"

// ChangeEventName tags a change-stream record with the write that produced it.
type ChangeEventName string

const (
	ChangeInsert ChangeEventName = "INSERT"
	ChangeModify ChangeEventName = "MODIFY"
	ChangeRemove ChangeEventName = "REMOVE"
)

var validChangeEventNames = []ChangeEventName{
	ChangeInsert,
	ChangeModify,
	ChangeRemove,
}

// IsValid reports whether the value is a known change-stream tag.
func (c ChangeEventName) IsValid() bool {
	for _, candidate := range validChangeEventNames {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChangeEventName converts raw input into ChangeEventName.
func ParseChangeEventName(value string) (ChangeEventName, error) {
	for _, candidate := range validChangeEventNames {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid change event name %q", value)
}
