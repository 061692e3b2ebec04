package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyQuoteExactMatch(t *testing.T) {
	assert.True(t, VerifyQuote("class UserController", "class UserController extends Base {}"))
}

func TestVerifyQuoteWhitespaceNormalized(t *testing.T) {
	assert.True(t, VerifyQuote("func  Foo( )", "func  \n Foo(  )  {}"))
}

func TestVerifyQuoteCaseInsensitive(t *testing.T) {
	assert.True(t, VerifyQuote("SELECT * FROM users", "select * from users where id = 1"))
}

func TestVerifyQuoteLineWiseContainment(t *testing.T) {
	quote := "func Foo() {\nreturn 1\n}"
	source := "prefix\nfunc Foo() {\nsome other stuff\nreturn 1\n}\nsuffix"
	assert.True(t, VerifyQuote(quote, source))
}

func TestVerifyQuoteTokenSetForShortQuotes(t *testing.T) {
	assert.True(t, VerifyQuote("auth service", "the AuthService handles login"))
}

func TestVerifyQuoteFailsWhenAbsent(t *testing.T) {
	assert.False(t, VerifyQuote("this text does not exist anywhere", "completely unrelated content"))
}

func TestVerifyQuoteFailsOnEmptyInputs(t *testing.T) {
	assert.False(t, VerifyQuote("", "source"))
	assert.False(t, VerifyQuote("quote", ""))
}
