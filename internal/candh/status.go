package candh

// EntityCopyStatus classifies how significant the changes of a walk were.
// Values are ordered: StatusNone < StatusMinor < StatusMajor.
type EntityCopyStatus int

const (
	StatusNone EntityCopyStatus = iota
	StatusMinor
	StatusMajor
)

// Combine returns the more significant of the two statuses.
func (s EntityCopyStatus) Combine(other EntityCopyStatus) EntityCopyStatus {
	if other > s {
		return other
	}
	return s
}

// CombineAll folds statuses with Combine, starting from StatusNone.
func CombineAll(statuses ...EntityCopyStatus) EntityCopyStatus {
	result := StatusNone
	for _, status := range statuses {
		result = result.Combine(status)
	}
	return result
}

func (s EntityCopyStatus) String() string {
	switch s {
	case StatusNone:
		return "NONE"
	case StatusMinor:
		return "MINOR"
	case StatusMajor:
		return "MAJOR"
	}
	return "UNKNOWN"
}

// Changed reports whether the status records any modification.
func (s EntityCopyStatus) Changed() bool {
	return s != StatusNone
}
