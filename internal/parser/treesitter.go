package parser

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/sevigo/coderadar/internal/core"
)

// langSpec names the node types a given grammar uses for the constructs
// the indexer cares about. Tree-sitter grammars don't share a node-type
// vocabulary, so each language gets its own small table instead of one
// generic walker trying to guess across grammars.
type langSpec struct {
	grammar        *sitter.Language
	funcNodes      map[string]bool
	classNodes     map[string]bool
	callNodes      map[string]bool
	importNodes    map[string]bool
	identifierType string
}

var specs = map[string]langSpec{
	"python": {
		grammar:        python.GetLanguage(),
		funcNodes:      map[string]bool{"function_definition": true},
		classNodes:     map[string]bool{"class_definition": true},
		callNodes:      map[string]bool{"call": true},
		importNodes:    map[string]bool{"import_statement": true, "import_from_statement": true},
		identifierType: "identifier",
	},
	"javascript": {
		grammar: javascript.GetLanguage(),
		funcNodes: map[string]bool{
			"function_declaration": true, "method_definition": true,
			"arrow_function": true, "function": true,
		},
		classNodes:     map[string]bool{"class_declaration": true},
		callNodes:      map[string]bool{"call_expression": true},
		importNodes:    map[string]bool{"import_statement": true},
		identifierType: "identifier",
	},
	"typescript": {
		grammar: typescript.GetLanguage(),
		funcNodes: map[string]bool{
			"function_declaration": true, "method_definition": true,
			"arrow_function": true, "function": true,
		},
		classNodes:     map[string]bool{"class_declaration": true, "interface_declaration": true},
		callNodes:      map[string]bool{"call_expression": true},
		importNodes:    map[string]bool{"import_statement": true},
		identifierType: "identifier",
	},
}

// TreeSitterParser parses one language's files into a full symbol table,
// import list, and call graph using a tree-sitter grammar.
type TreeSitterParser struct {
	language string
	spec     langSpec
	parser   *sitter.Parser
}

// NewTreeSitterParser returns a parser for language. It panics if language
// has no registered grammar; callers only construct parsers for the fixed
// set of languages this package supports.
func NewTreeSitterParser(language string) *TreeSitterParser {
	spec, ok := specs[language]
	if !ok {
		panic(fmt.Sprintf("parser: no tree-sitter grammar registered for %q", language))
	}
	p := sitter.NewParser()
	p.SetLanguage(spec.grammar)
	return &TreeSitterParser{language: language, spec: spec, parser: p}
}

func (t *TreeSitterParser) Language() string { return t.language }

// ParseFile parses content with the language's tree-sitter grammar. A
// syntax error anywhere in the file does not abort the parse: tree-sitter
// builds an error-tolerant tree, and this walks whatever subtrees parsed
// cleanly rather than discarding the whole file.
func (t *TreeSitterParser) ParseFile(path string, content []byte) (*core.ParseResult, error) {
	tree, err := t.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parser: tree-sitter parse %s: %w", path, err)
	}
	defer tree.Close()

	result := &core.ParseResult{FilePath: path, Language: t.language}

	w := &walker{spec: t.spec, content: content, path: path, result: result}
	w.walk(tree.RootNode(), "", nil)
	return result, nil
}

type walker struct {
	spec    langSpec
	content []byte
	path    string

	result      *core.ParseResult
	seenQNames  map[string]int
	anonCounter int
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.content)
}

func (w *walker) nameOf(n *sitter.Node) string {
	if id := n.ChildByFieldName("name"); id != nil {
		return w.text(id)
	}
	return ""
}

// walk descends the tree, emitting a Symbol for each function/class/method
// node, an Import for each import node, and a CallEdge for each call node
// found inside the current enclosing function (enclosingQName).
func (w *walker) walk(n *sitter.Node, parentQName string, enclosingQName *string) {
	if n == nil {
		return
	}
	nodeType := n.Type()

	switch {
	case w.spec.classNodes[nodeType]:
		name := w.nameOf(n)
		if name == "" {
			name = "<anonymous class>"
		}
		qname := joinQName(parentQName, name)
		w.emitSymbol(n, qname, core.SymbolClass, parentQName)
		for i := 0; i < int(n.ChildCount()); i++ {
			w.walk(n.Child(i), qname, enclosingQName)
		}
		return

	case w.spec.funcNodes[nodeType]:
		name := w.nameOf(n)
		if name == "" {
			w.anonCounter++
			name = fmt.Sprintf("<anonymous:%d>", w.anonCounter)
		}
		qname := joinQName(parentQName, name)
		kind := core.SymbolFunction
		if parentQName != "" {
			kind = core.SymbolMethod
		}
		w.emitSymbol(n, qname, kind, parentQName)
		inner := qname
		for i := 0; i < int(n.ChildCount()); i++ {
			w.walk(n.Child(i), parentQName, &inner)
		}
		return

	case w.spec.importNodes[nodeType]:
		w.emitImport(n)

	case w.spec.callNodes[nodeType] && enclosingQName != nil:
		callee := w.calleeExpression(n)
		if callee != "" {
			w.result.Calls = append(w.result.Calls, core.CallEdge{
				FilePath:         w.path,
				Line:             int(n.StartPoint().Row) + 1,
				CallerQName:      *enclosingQName,
				CalleeExpression: callee,
			})
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i), parentQName, enclosingQName)
	}
}

func (w *walker) calleeExpression(call *sitter.Node) string {
	fn := call.ChildByFieldName("function")
	if fn == nil && call.ChildCount() > 0 {
		fn = call.Child(0)
	}
	return w.text(fn)
}

func (w *walker) emitSymbol(n *sitter.Node, qname string, kind core.SymbolKind, parentQName string) {
	if w.seenQNames == nil {
		w.seenQNames = make(map[string]int)
	}
	w.seenQNames[qname]++
	finalQName := qname
	if dupes := w.seenQNames[qname]; dupes > 1 {
		finalQName = fmt.Sprintf("%s#%d", qname, dupes)
	}

	sym := core.Symbol{
		FilePath:      w.path,
		QualifiedName: finalQName,
		Name:          lastSegment(qname),
		Kind:          kind,
		Parent:        parentQName,
		Visibility:    visibilityFromNaming(lastSegment(qname), w.result.Language),
		LineStart:     int(n.StartPoint().Row) + 1,
		LineEnd:       int(n.EndPoint().Row) + 1,
		Body:          w.text(n),
		FromFallback:  false,
	}
	w.result.Symbols = append(w.result.Symbols, sym)
}

func (w *walker) emitImport(n *sitter.Node) {
	mod := strings.Trim(w.text(n), "\"'; \t\n")
	w.result.Imports = append(w.result.Imports, core.Import{
		FilePath: w.path,
		Line:     int(n.StartPoint().Row) + 1,
		Module:   mod,
	})
}

func joinQName(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func lastSegment(qname string) string {
	idx := strings.LastIndex(qname, ".")
	if idx < 0 {
		return qname
	}
	return qname[idx+1:]
}

// visibilityFromNaming infers exported/private from the language's naming
// convention: Go capitalizes exported identifiers; Python/JS/TS convention
// is a leading underscore for private, double-underscore-wrapped names are
// "magic" (e.g. __init__).
func visibilityFromNaming(name, language string) core.Visibility {
	if name == "" {
		return core.VisibilityPrivate
	}
	if language == "go" {
		if strings.ToUpper(name[:1]) == name[:1] {
			return core.VisibilityPublic
		}
		return core.VisibilityPrivate
	}
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return core.VisibilityMagic
	}
	if strings.HasPrefix(name, "_") {
		return core.VisibilityPrivate
	}
	return core.VisibilityPublic
}
