package validate

import (
	"html"

	"github.com/microcosm-cc/bluemonday"

	"github.com/iammusic/submissions/internal/model"
)

// strict drops every tag; text may be rendered back into a UI.
var strict = bluemonday.StrictPolicy()

// maxPasses bounds decoding of markup hidden behind entities (&lt;b&gt;).
const maxPasses = 8

// Sanitize strips markup from every present field and returns plain,
// unescaped text. It never fails and applying it twice gives the same
// result as applying it once.
func Sanitize(in model.SubmissionInput) model.SubmissionInput {
	return model.SubmissionInput{
		Text:     clean(in.Text),
		IP:       clean(in.IP),
		Country:  clean(in.Country),
		Region:   clean(in.Region),
		City:     clean(in.City),
		Location: clean(in.Location),
		OS:       clean(in.OS),
	}
}

func clean(s *string) *string {
	if s == nil {
		return nil
	}
	out := *s
	for i := 0; i < maxPasses; i++ {
		next := html.UnescapeString(strict.Sanitize(out))
		if next == out {
			break
		}
		out = next
	}
	return &out
}
