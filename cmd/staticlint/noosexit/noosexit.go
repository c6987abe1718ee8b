// Package noosexit defines an analyzer that forbids calling os.Exit from
// the main function of package main. A direct exit there skips deferred
// cleanup and makes the entry point untestable; errors should propagate to
// main and be handled once.
package noosexit

import (
	"go/ast"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer reports direct os.Exit calls inside main.main.
var Analyzer = &analysis.Analyzer{
	Name: "noosexit",
	Doc:  "prohibits direct use of os.Exit in main.main",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() != "main" {
		return nil, nil
	}

	for _, file := range pass.Files {
		// Synthesized files under the build cache are not ours to lint.
		if isBuildCachePath(pass.Fset.File(file.Pos()).Name()) {
			continue
		}

		mainFn := findMainFunc(file)
		if mainFn == nil {
			continue
		}

		ast.Inspect(mainFn.Body, func(node ast.Node) bool {
			if call, ok := node.(*ast.CallExpr); ok && isOsExitCall(call) {
				pass.Reportf(call.Pos(), "avoid using os.Exit in main.main")
			}
			return true
		})
	}

	return nil, nil
}

func findMainFunc(file *ast.File) *ast.FuncDecl {
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if ok && fn.Recv == nil && fn.Name.Name == "main" {
			return fn
		}
	}
	return nil
}

func isOsExitCall(call *ast.CallExpr) bool {
	selector, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || selector.Sel.Name != "Exit" {
		return false
	}

	pkg, ok := selector.X.(*ast.Ident)
	return ok && pkg.Name == "os"
}

func isBuildCachePath(path string) bool {
	return strings.Contains(filepath.ToSlash(path), "/go-build/")
}
