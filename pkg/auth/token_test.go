package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginPage = `<!DOCTYPE html>
<html>
<body>
<form action="/users/sign_in" method="post">
  <input type="hidden" name="authenticity_token" value="tok-abc123==" />
  <input type="email" name="user[email]" />
  <input type="password" name="user[password]" />
</form>
</body>
</html>`

func TestExtractFormToken(t *testing.T) {
	token, err := ExtractFormToken(strings.NewReader(loginPage), "authenticity_token")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc123==", token)
}

func TestExtractFormTokenMissingField(t *testing.T) {
	_, err := ExtractFormToken(strings.NewReader(loginPage), "csrf_token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csrf_token")
}

func TestExtractFormTokenEmptyValue(t *testing.T) {
	page := `<form><input type="hidden" name="authenticity_token" value="" /></form>`
	_, err := ExtractFormToken(strings.NewReader(page), "authenticity_token")
	assert.Error(t, err)
}

func TestExtractFormTokenNoValueAttr(t *testing.T) {
	page := `<form><input type="hidden" name="authenticity_token" /></form>`
	_, err := ExtractFormToken(strings.NewReader(page), "authenticity_token")
	assert.Error(t, err)
}

func TestExtractFormTokenFirstMatchWins(t *testing.T) {
	page := `<form>
	  <input name="authenticity_token" value="first" />
	  <input name="authenticity_token" value="second" />
	</form>`
	token, err := ExtractFormToken(strings.NewReader(page), "authenticity_token")
	require.NoError(t, err)
	assert.Equal(t, "first", token)
}
