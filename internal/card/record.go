package card

import (
	"errors"
	"strings"
	"time"
)

// Placeholder ids expected in the front template.
const (
	FieldName       = "NameField"
	FieldDOB        = "DOBField"
	FieldIssued     = "IssuedDate"
	FieldExpiration = "ExpirationDate"
)

// FieldIDs lists every placeholder in the order they are reported.
var FieldIDs = []string{FieldName, FieldDOB, FieldIssued, FieldExpiration}

var ErrEmptyName = errors.New("name is required")

// Record is the player data printed on one card.
type Record struct {
	name  string
	dob   time.Time
	issue time.Time
}

// NewRecord validates the inputs and builds a Record. An empty issue date
// (nil or blank string) defaults to the calendar date of now.
func NewRecord(name string, dob, issue any, now time.Time) (Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, ErrEmptyName
	}

	birth, err := ParseDate(dob)
	if err != nil {
		return Record{}, err
	}

	issued := Today(now)
	if !isBlank(issue) {
		if issued, err = ParseDate(issue); err != nil {
			return Record{}, err
		}
	}

	return Record{name: name, dob: birth, issue: issued}, nil
}

func isBlank(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(s) == ""
	case *time.Time:
		return s == nil
	}
	return false
}

func (r Record) Name() string              { return r.name }
func (r Record) DateOfBirth() time.Time    { return r.dob }
func (r Record) IssueDate() time.Time      { return r.issue }
func (r Record) ExpirationDate() time.Time { return Expiration(r.issue) }

// Filename is the output file name for this record.
func (r Record) Filename() string { return Filename(r.name) }

// Fields maps every placeholder id to its display value.
func (r Record) Fields(layout string) map[string]string {
	return map[string]string{
		FieldName:       r.name,
		FieldDOB:        r.dob.Format(layout),
		FieldIssued:     r.issue.Format(layout),
		FieldExpiration: r.ExpirationDate().Format(layout),
	}
}
