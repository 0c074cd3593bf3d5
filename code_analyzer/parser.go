package code_analyzer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/meysamhadeli/codai-impact/code_analyzer/models"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"go.trai.ch/zerr"
)

const (
	pythonExtension = ".py"

	// binarySniffLen mirrors git's heuristic: a NUL byte in the first 8000 bytes marks binary content.
	binarySniffLen = 8000
)

// Python node types used during extraction
const (
	nodeImportStatement     = "import_statement"
	nodeImportFromStatement = "import_from_statement"
	nodeDottedName          = "dotted_name"
	nodeDottedAsNames       = "dotted_as_names"
	nodeAliasedImport       = "aliased_import"
	nodeRelativeImport      = "relative_import"
	nodeWildcardImport      = "wildcard_import"
	nodeImportList          = "import_list"
	nodeCall                = "call"
	nodeAttribute           = "attribute"
	nodeIdentifier          = "identifier"

	// Python 2 statements the grammar still accepts; they are syntax errors for the interpreter.
	nodePrintStatement = "print_statement"
	nodeExecStatement  = "exec_statement"
)

// SourceParser builds Python syntax trees with tree-sitter and extracts
// import statements and call expressions from them.
type SourceParser struct {
	language *sitter.Language
}

// NewSourceParser creates a parser for Python modules.
func NewSourceParser() *SourceParser {
	return &SourceParser{language: python.GetLanguage()}
}

// IsSourceFile reports whether path has a recognized source module extension.
func IsSourceFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == pythonExtension
}

// ParseFile reads and parses the module at absPath.
// Unreadable and binary files return an error; a syntax error is reported through ParseFailed.
func (p *SourceParser) ParseFile(ctx context.Context, absPath string) (*models.ParsedModule, error) {
	content, err := readSource(absPath)
	if err != nil {
		return &models.ParsedModule{ParseFailed: true}, err
	}
	return p.ParseSource(ctx, content)
}

// ParseSource parses an in-memory Python module.
func (p *SourceParser) ParseSource(ctx context.Context, content []byte) (*models.ParsedModule, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.language)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return &models.ParsedModule{ParseFailed: true}, zerr.Wrap(err, "failed to parse source")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		return &models.ParsedModule{ParseFailed: true}, nil
	}

	parsed := &models.ParsedModule{}
	legacySyntax := false
	walkTree(root, func(node *sitter.Node) bool {
		if legacySyntax {
			return false
		}
		switch node.Type() {
		case nodePrintStatement, nodeExecStatement:
			legacySyntax = true
			return false
		case nodeImportStatement:
			parsed.Imports = append(parsed.Imports, extractImportStatement(node, content)...)
			return false
		case nodeImportFromStatement:
			if ref, ok := extractFromImport(node, content); ok {
				parsed.Imports = append(parsed.Imports, ref)
			}
			return false
		case nodeCall:
			if name := dottedCallee(node.ChildByFieldName("function"), content); name != "" {
				parsed.Calls = append(parsed.Calls, name)
			}
		}
		return true
	})
	if legacySyntax {
		return &models.ParsedModule{ParseFailed: true}, nil
	}

	return parsed, nil
}

// walkTree visits nodes in document order. Children are skipped when visit returns false.
func walkTree(node *sitter.Node, visit func(*sitter.Node) bool) {
	if node == nil || !visit(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(i), visit)
	}
}

func extractImportStatement(node *sitter.Node, source []byte) []models.ImportRef {
	var refs []models.ImportRef

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)

		switch child.Type() {
		case nodeDottedName:
			refs = append(refs, models.ImportRef{Module: child.Content(source)})
		case nodeAliasedImport:
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name == nil {
				continue
			}
			ref := models.ImportRef{Module: name.Content(source)}
			if alias != nil {
				ref.Alias = alias.Content(source)
			}
			refs = append(refs, ref)
		case nodeDottedAsNames:
			refs = append(refs, extractImportStatement(child, source)...)
		}
	}

	return refs
}

// extractFromImport handles "from x import y". Relative and star imports are not resolvable statically.
func extractFromImport(node *sitter.Node, source []byte) (models.ImportRef, bool) {
	ref := models.ImportRef{FromImport: true}

	var collect func(n *sitter.Node) bool
	collect = func(n *sitter.Node) bool {
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)

			switch child.Type() {
			case nodeRelativeImport, nodeWildcardImport:
				return false
			case nodeDottedName:
				if ref.Module == "" {
					ref.Module = child.Content(source)
				} else {
					ref.Names = append(ref.Names, models.ImportedName{Name: child.Content(source)})
				}
			case nodeAliasedImport:
				name := child.ChildByFieldName("name")
				alias := child.ChildByFieldName("alias")
				if name == nil {
					continue
				}
				imported := models.ImportedName{Name: name.Content(source)}
				if alias != nil {
					imported.Alias = alias.Content(source)
				}
				ref.Names = append(ref.Names, imported)
			case nodeImportList:
				if !collect(child) {
					return false
				}
			}
		}
		return true
	}

	if !collect(node) || ref.Module == "" {
		return models.ImportRef{}, false
	}
	return ref, true
}

// dottedCallee returns "a.b.c" for identifier/attribute chains and "" for anything else,
// e.g. calls on subscripts or on the result of another call.
func dottedCallee(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}

	switch node.Type() {
	case nodeIdentifier:
		return node.Content(source)
	case nodeAttribute:
		object := dottedCallee(node.ChildByFieldName("object"), source)
		attribute := node.ChildByFieldName("attribute")
		if object == "" || attribute == nil {
			return ""
		}
		return object + "." + attribute.Content(source)
	}
	return ""
}

// readSource reads a module and rejects binary content
func readSource(absPath string) ([]byte, error) {
	content, err := os.ReadFile(absPath) //nolint:gosec // path comes from the project walk or change-set
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read source"), "path", absPath)
	}
	if isBinary(content) {
		return nil, zerr.With(zerr.Wrap(ErrBinarySource, "cannot parse source"), "path", absPath)
	}
	return content, nil
}

func isBinary(content []byte) bool {
	sniff := content
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	return bytes.IndexByte(sniff, 0) >= 0
}
