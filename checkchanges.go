package gitview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// ChangeError is an error containing the information about a change the
// filter cannot route back to original coordinates.
type ChangeError struct {
	FromPath string
	ToPath   string
}

func (e *ChangeError) Error() string {
	errfs := make([]string, 0, 2)
	if e.FromPath != "" {
		errfs = append(errfs, fmt.Sprintf("invalid from path: %s", e.FromPath))
	}
	if e.ToPath != "" {
		errfs = append(errfs, fmt.Sprintf("invalid to path: %s", e.ToPath))
	}

	return strings.Join(errfs, "|")
}

// ChangeCheckResult contains the result from [CheckChangesAgainstFilter].
type ChangeCheckResult struct {
	Errors []*ChangeError
}

func (r *ChangeCheckResult) ErrorSlice() []error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}

	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}

	return errs
}

func (r *ChangeCheckResult) ToError() error {
	errs := r.ErrorSlice()
	if len(errs) == 0 {
		return nil
	}

	return errors.Join(errs...)
}

// CheckChangesAgainstFilter checks a set of tree changes expressed in
// filtered coordinates against the filter, flagging every path the filter
// cannot translate back. It lets a caller reject an edit before attempting
// [Unapply] on it.
func CheckChangesAgainstFilter(changes object.Changes, filter Filter) *ChangeCheckResult {
	r := &ChangeCheckResult{}

	for _, ch := range changes {
		var thiserr *ChangeError

		if ch.From.Name != "" {
			if _, _, err := filter.InvertPath(ch.From.Name); err != nil {
				thiserr = &ChangeError{FromPath: ch.From.Name}
			}
		}
		if ch.To.Name != "" {
			if _, _, err := filter.InvertPath(ch.To.Name); err != nil {
				if thiserr == nil {
					thiserr = new(ChangeError)
				}
				thiserr.ToPath = ch.To.Name
			}
		}
		if thiserr != nil {
			r.Errors = append(r.Errors, thiserr)
		}
	}

	return r
}
