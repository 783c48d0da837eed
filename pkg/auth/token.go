package auth

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
)

// ExtractFormToken parses an HTML document and returns the value of the
// hidden form input with the given name. A missing input, a missing value
// attribute, or an empty value are all reported as an error; the login page
// structure is the only thing this function trusts.
func ExtractFormToken(r io.Reader, fieldName string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	selector := fmt.Sprintf("input[name=%q]", fieldName)
	value, exists := doc.Find(selector).First().Attr("value")
	if !exists || value == "" {
		return "", fmt.Errorf("input field %q not found in page", fieldName)
	}

	return value, nil
}
