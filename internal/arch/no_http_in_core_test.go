package arch_test

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// adapterImports are packages adapters may not import: configuration and the
// CLI sit above them.
var adapterImports = []string{
	modulePath + "/internal/config",
	modulePath + "/internal/cli",
	modulePath + "/pkg/courier",
}

// TestAdaptersDoNotImportUpward parses every adapter file, tests included,
// and rejects imports of the layers built on top of adapters.
func TestAdaptersDoNotImportUpward(t *testing.T) {
	root := filepath.Join("..", "adapters")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}

		fset := token.NewFileSet()
		node, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return fmt.Errorf("failed to parse Go file %s: %w", path, err)
		}

		for _, imp := range node.Imports {
			importPath, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				return err
			}
			for _, prohibited := range adapterImports {
				if matchesPrefix(importPath, prohibited) {
					t.Errorf("%s imports %s", path, importPath)
				}
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// TestOnlyTransportServesHTTP keeps net/http confined to the transport
// adapter, the CLI metrics endpoint and tests.
func TestOnlyTransportServesHTTP(t *testing.T) {
	allowed := []string{
		filepath.Join("..", "adapters", "secondary", "transport"),
		filepath.Join("..", "cli"),
	}

	for _, dir := range []string{"..", filepath.Join("..", "..", "pkg")} {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			for _, a := range allowed {
				if strings.HasPrefix(path, a+string(filepath.Separator)) {
					return nil
				}
			}

			node, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.ImportsOnly)
			if err != nil {
				return fmt.Errorf("failed to parse Go file %s: %w", path, err)
			}
			for _, imp := range node.Imports {
				if imp.Path.Value == `"net/http"` {
					t.Errorf("%s imports net/http", path)
				}
			}
			return nil
		})
		require.NoError(t, err)
	}
}
