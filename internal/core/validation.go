package core

// validation.go holds the field validators and the header and row checks the
// loader and the single-record operations share.
//
// Checks run in a fixed order for every cell: empty, then column lookup, then
// the field validator. Header columns are resolved once, before any data row,
// so an unknown column aborts a load without reading further.

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JonMunkholm/socialnet/internal/store"
)

var (
	// local@label.label.tld with a TLD of at least two characters.
	emailPattern = regexp.MustCompile(`^[^\s@]+@([^\s@.,]+\.)+[^\s@.,]{2,}$`)

	// Integer literals with an optional sign and digit-group underscores.
	integerPattern = regexp.MustCompile(`^[+-]?\p{Nd}+(_\p{Nd}+)*$`)
)

// isInteger reports whether s, ignoring surrounding whitespace, is an
// integer literal.
func isInteger(s string) bool {
	return integerPattern.MatchString(strings.TrimSpace(s))
}

// ValidateUserID rejects identifiers containing a space or parsing as an
// integer.
func ValidateUserID(id string) bool {
	if strings.Contains(id, " ") {
		return false
	}
	return !isInteger(id)
}

// ValidateEmail accepts local@domain.tld addresses.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateName accepts alphabetic names, allowing hyphens and apostrophes.
func ValidateName(name string) bool {
	stripped := strings.NewReplacer("-", "", "'", "").Replace(name)
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// ValidateStatusID accepts <user id>_<integer>.
func ValidateStatusID(id string) bool {
	parts := strings.Split(id, "_")
	if len(parts) != 2 {
		return false
	}
	return ValidateUserID(parts[0]) && isInteger(parts[1])
}

// ValidateStatusText accepts any text. Emptiness is checked per cell before
// validators run.
func ValidateStatusText(text string) bool {
	return utf8.ValidString(text)
}

// isBlank reports whether a cell counts as missing.
func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// resolveHeader maps each header column to its field spec. Unknown or
// repeated columns are UnexpectedColumn; an expected column absent from the
// header is MissingField.
func resolveHeader(feed Feed, header []string) ([]FieldSpec, error) {
	specs := make([]FieldSpec, len(header))
	seen := make(map[string]bool, len(header))

	for i, col := range header {
		spec, ok := feed.Lookup(col)
		if !ok {
			return nil, newError(KindUnexpectedColumn, col, "", 1, nil)
		}
		if seen[spec.Attribute] {
			return nil, newError(KindUnexpectedColumn, spec.Column, "", 1,
				fmt.Errorf("column appears more than once"))
		}
		seen[spec.Attribute] = true
		specs[i] = spec
	}

	for _, spec := range feed.Fields {
		if !seen[spec.Attribute] {
			return nil, newError(KindMissingField, spec.Column, "", 1,
				fmt.Errorf("column missing from header"))
		}
	}

	return specs, nil
}

// transformRow validates one data row and renames its columns to attributes.
// Values are stored exactly as read.
func transformRow(specs []FieldSpec, row []string, line int) (store.Record, error) {
	if len(row) > len(specs) {
		return nil, newError(KindUnexpectedColumn, fmt.Sprintf("column %d", len(specs)+1), row[len(specs)], line,
			fmt.Errorf("row has %d cells, header has %d", len(row), len(specs)))
	}

	rec := make(store.Record, len(specs))
	for i, spec := range specs {
		if i >= len(row) || isBlank(row[i]) {
			return nil, newError(KindMissingField, spec.Column, "", line, nil)
		}
		value := row[i]
		if !spec.Validate(value) {
			return nil, newError(KindValidation, spec.Column, value, line, nil)
		}
		rec[spec.Attribute] = value
	}
	return rec, nil
}

// validateRecord applies the feed's checks to a single record.
func validateRecord(feed Feed, rec store.Record) error {
	for _, spec := range feed.Fields {
		value := rec[spec.Attribute]
		if isBlank(value) {
			return newError(KindMissingField, spec.Attribute, "", 0, nil)
		}
		if !spec.Validate(value) {
			return newError(KindValidation, spec.Attribute, value, 0, nil)
		}
	}
	return nil
}
