package fonts

import "fmt"

// MalformedFontError reports a structural inconsistency in a source font:
// a truncated table directory, a missing mandatory table, or an out-of-range
// reference found while walking glyph data. A font failing with this error is
// never embedded.
type MalformedFontError struct {
	Reason string
}

func (e *MalformedFontError) Error() string { return "malformed font: " + e.Reason }

func malformed(format string, args ...interface{}) error {
	return &MalformedFontError{Reason: fmt.Sprintf(format, args...)}
}

// UnsupportedFontFeatureError reports a valid font using a table layout this
// subsetter does not implement, such as a cmap without a format 4 or 12
// subtable. The add fails rather than emitting a corrupt subset.
type UnsupportedFontFeatureError struct {
	Feature string
}

func (e *UnsupportedFontFeatureError) Error() string {
	return "unsupported font feature: " + e.Feature
}

func unsupported(format string, args ...interface{}) error {
	return &UnsupportedFontFeatureError{Feature: fmt.Sprintf(format, args...)}
}
