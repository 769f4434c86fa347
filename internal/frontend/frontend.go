// Package frontend is the host-compiler integration shim: it reads Go
// source, finds functions annotated with //verify:pre and //verify:post
// directives, and lowers their bodies into the normalized variable-table
// and control-flow view the verifier consumes. It is deliberately thin;
// everything semantic happens downstream.
package frontend

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gover/internal/cfg"
	"gover/internal/cond"
	"gover/internal/verifier"
)

const directivePrefix = "//verify:"

// Load parses the given Go files and returns the annotated functions in
// declaration order together with the contract registry for call sites.
// Functions missing either directive are skipped silently; a function
// whose body cannot be lowered is returned with LowerErr set so it is
// reported, not dropped.
func Load(paths []string) ([]*verifier.Function, cfg.Contracts, error) {
	var (
		fns       []*verifier.Function
		contracts = make(cfg.Contracts)
	)
	for _, path := range paths {
		fileFns, err := loadFile(path, contracts)
		if err != nil {
			return nil, nil, err
		}
		fns = append(fns, fileFns...)
	}
	return fns, contracts, nil
}

func loadFile(path string, contracts cfg.Contracts) ([]*verifier.Function, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	cmap := ast.NewCommentMap(fset, file, file.Comments)

	var annotated []*ast.FuncDecl
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		_, hasPre := directive(fd.Doc, "pre")
		_, hasPost := directive(fd.Doc, "post")
		if !hasPre || !hasPost {
			log.Debugf("%s: no contract, skipping", fd.Name.Name)
			continue
		}
		annotated = append(annotated, fd)
	}

	// Contracts first, so calls between annotated siblings resolve
	// regardless of declaration order.
	for _, fd := range annotated {
		if ct, err := buildContract(fd); err == nil {
			contracts[ct.Name] = ct
		}
	}

	var fns []*verifier.Function
	for _, fd := range annotated {
		fns = append(fns, lowerFunc(fset, cmap, fd, contracts))
	}
	return fns, nil
}

// directive extracts the argument of a //verify:<name> line from a doc
// comment.
func directive(doc *ast.CommentGroup, name string) (string, bool) {
	if doc == nil {
		return "", false
	}
	marker := directivePrefix + name
	for _, c := range doc.List {
		text := c.Text
		if !strings.HasPrefix(text, marker) {
			continue
		}
		rest := text[len(marker):]
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			continue // e.g. //verify:precheck
		}
		return strings.TrimSpace(rest), true
	}
	return "", false
}

// typeOf maps a source type expression to a condition type. Only int and
// bool participate in contracts.
func typeOf(expr ast.Expr) (cond.Type, error) {
	ident, ok := expr.(*ast.Ident)
	if !ok {
		return cond.TypeUnknown, &cfg.UnsupportedError{
			Kind:   cfg.UnsupportedConstruct,
			Detail: "non-identifier type",
		}
	}
	switch ident.Name {
	case "int":
		return cond.TypeInt, nil
	case "bool":
		return cond.TypeBool, nil
	}
	return cond.TypeUnknown, &cfg.UnsupportedError{
		Kind:   cfg.UnsupportedConstruct,
		Detail: "unsupported type " + ident.Name,
	}
}

// buildTable collects argument declarations and the return type.
func buildTable(fd *ast.FuncDecl) (*cond.VariableTable, []string, error) {
	retType := cond.TypeUnknown
	if fd.Type.Results != nil {
		if len(fd.Type.Results.List) != 1 || len(fd.Type.Results.List[0].Names) > 1 {
			return nil, nil, &cfg.UnsupportedError{
				Kind:   cfg.UnsupportedConstruct,
				Detail: "multiple return values",
			}
		}
		var err error
		retType, err = typeOf(fd.Type.Results.List[0].Type)
		if err != nil {
			return nil, nil, err
		}
	}

	table := cond.NewVariableTable(retType)
	var params []string
	for _, field := range fd.Type.Params.List {
		typ, err := typeOf(field.Type)
		if err != nil {
			return nil, nil, err
		}
		for _, name := range field.Names {
			table.Declare(name.Name, typ)
			params = append(params, name.Name)
		}
	}
	return table, params, nil
}

// buildContract parses and resolves a function's own conditions against
// its arguments so call sites can assume them.
func buildContract(fd *ast.FuncDecl) (*cfg.Contract, error) {
	preSrc, _ := directive(fd.Doc, "pre")
	postSrc, _ := directive(fd.Doc, "post")

	table, params, err := buildTable(fd)
	if err != nil {
		return nil, err
	}
	pre, err := cond.Parse(preSrc)
	if err != nil {
		return nil, err
	}
	post, err := cond.Parse(postSrc)
	if err != nil {
		return nil, err
	}
	if pre, err = cond.Resolve(pre, table); err != nil {
		return nil, err
	}
	if post, err = cond.Resolve(post, table); err != nil {
		return nil, err
	}
	return &cfg.Contract{
		Name:    fd.Name.Name,
		Params:  params,
		RetType: table.ReturnType(),
		Pre:     pre,
		Post:    post,
	}, nil
}

func lowerFunc(fset *token.FileSet, cmap ast.CommentMap, fd *ast.FuncDecl, contracts cfg.Contracts) *verifier.Function {
	preSrc, _ := directive(fd.Doc, "pre")
	postSrc, _ := directive(fd.Doc, "post")
	pos := fset.Position(fd.Pos())

	fn := &verifier.Function{
		Name: fd.Name.Name,
		File: pos.Filename,
		Line: pos.Line,
		Pre:  preSrc,
		Post: postSrc,
	}

	table, _, err := buildTable(fd)
	if err != nil {
		fn.LowerErr = err
		return fn
	}
	lw := &lowerer{
		cmap:      cmap,
		graph:     cfg.NewGraph(),
		table:     table,
		contracts: contracts,
	}
	if err := lw.lower(fd); err != nil {
		fn.LowerErr = err
		return fn
	}
	fn.Table = table
	fn.Graph = lw.graph
	return fn
}
