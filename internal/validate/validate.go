// Package validate turns untrusted submissions into well-formed drafts.
package validate

import (
	"strings"
	"unicode/utf8"

	"github.com/iammusic/submissions/internal/errs"
	"github.com/iammusic/submissions/internal/model"
)

// MaxTextRunes is the maximum text length in Unicode code points, after trimming.
const MaxTextRunes = 25

// Validate checks text emptiness and length and copies optional fields.
// It performs no I/O and does not filter content.
func Validate(in model.SubmissionInput) (model.Draft, error) {
	if in.Text == nil {
		return model.Draft{}, errs.ErrEmptyText
	}
	text := strings.TrimSpace(*in.Text)
	if text == "" {
		return model.Draft{}, errs.ErrEmptyText
	}
	if utf8.RuneCountInString(text) > MaxTextRunes {
		return model.Draft{}, errs.ErrTextTooLong
	}
	return model.Draft{
		Text:     text,
		IP:       in.IP,
		Country:  in.Country,
		Region:   in.Region,
		City:     in.City,
		Location: in.Location,
		OS:       in.OS,
	}, nil
}
