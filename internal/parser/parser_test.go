package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path     string
		wantLang string
		wantOK   bool
	}{
		{path: "service.py", wantLang: "python", wantOK: true},
		{path: "src/App.tsx", wantLang: "typescript", wantOK: true},
		{path: "main.go", wantLang: "go", wantOK: true},
		{path: "README.md", wantOK: false},
		{path: "Makefile", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			lang, ok := DetectLanguage(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantLang, lang)
			}
		})
	}
}

func TestRegistryForFallsBackForUnknownLanguage(t *testing.T) {
	reg := NewRegistry()
	p := reg.For("ruby")
	require.NotNil(t, p)
	assert.Equal(t, "unknown", p.Language())
}

func TestRegistryForReturnsTreeSitterParser(t *testing.T) {
	reg := NewRegistry()
	p := reg.For("python")
	require.NotNil(t, p)
	assert.Equal(t, "python", p.Language())
}

func TestTreeSitterParserPython(t *testing.T) {
	src := `
class Greeter:
    def __init__(self, name):
        self.name = name

    def greet(self):
        return say_hello(self.name)

def say_hello(name):
    return "hello " + name
`
	p := NewTreeSitterParser("python")
	result, err := p.ParseFile("greeter.py", []byte(src))
	require.NoError(t, err)

	var names []string
	for _, s := range result.Symbols {
		names = append(names, s.QualifiedName)
	}
	assert.Contains(t, names, "Greeter")
	assert.Contains(t, names, "Greeter.__init__")
	assert.Contains(t, names, "Greeter.greet")
	assert.Contains(t, names, "say_hello")

	for _, s := range result.Symbols {
		if s.QualifiedName == "Greeter.__init__" {
			assert.Equal(t, "magic", string(s.Visibility))
		}
	}

	var sawCall bool
	for _, c := range result.Calls {
		if c.CallerQName == "Greeter.greet" {
			sawCall = true
		}
	}
	assert.True(t, sawCall, "expected a call edge inside Greeter.greet")
}

func TestFallbackParserNeverPopulatesBody(t *testing.T) {
	src := "func DoSomething(x int) int {\n\treturn x + 1\n}\n"
	p := NewFallbackParser()
	result, err := p.ParseFile("legacy.foo", []byte(src))
	require.NoError(t, err)
	require.NotEmpty(t, result.Symbols)
	for _, s := range result.Symbols {
		assert.Empty(t, s.Body)
		assert.True(t, s.FromFallback)
	}
	assert.Empty(t, result.Calls)
}
