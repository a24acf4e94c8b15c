package errors

import (
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

// TestErrorCodesAreUnique scans the package sources for Error{...} literals
// and fails when two variables share a Code.
func TestErrorCodesAreUnique(t *testing.T) {
	c := qt.New(t)
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, ".", func(info fs.FileInfo) bool {
		return !strings.HasSuffix(info.Name(), "_test.go")
	}, 0)
	c.Assert(err, qt.IsNil)
	pkg, ok := pkgs["errors"]
	c.Assert(ok, qt.IsTrue)

	seen := map[int]string{}
	for _, f := range pkg.Files {
		ast.Inspect(f, func(n ast.Node) bool {
			vs, ok := n.(*ast.ValueSpec)
			if !ok {
				return true
			}
			for i, name := range vs.Names {
				if i >= len(vs.Values) {
					continue
				}
				cl, ok := vs.Values[i].(*ast.CompositeLit)
				if !ok {
					continue
				}
				if ident, ok := cl.Type.(*ast.Ident); !ok || ident.Name != "Error" {
					continue
				}
				code, ok := codeOf(cl)
				if !ok {
					continue
				}
				if prev, dup := seen[code]; dup {
					t.Errorf("code %d used by %s and %s", code, prev, name.Name)
				}
				seen[code] = name.Name
			}
			return true
		})
	}
	c.Assert(len(seen) > 0, qt.IsTrue)
}

func codeOf(cl *ast.CompositeLit) (int, bool) {
	for _, elt := range cl.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		if k, ok := kv.Key.(*ast.Ident); !ok || k.Name != "Code" {
			continue
		}
		lit, ok := kv.Value.(*ast.BasicLit)
		if !ok || lit.Kind != token.INT {
			continue
		}
		n, err := strconv.Atoi(lit.Value)
		return n, err == nil
	}
	return 0, false
}

func TestWrite(t *testing.T) {
	c := qt.New(t)
	rec := httptest.NewRecorder()
	ErrPaymentFailed.With("card_declined").WithMessage("Your card was declined.").Write(rec)

	c.Assert(rec.Code, qt.Equals, http.StatusPaymentRequired)
	c.Assert(rec.Header().Get("Content-Type"), qt.Equals, "application/json")
	var body map[string]any
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &body), qt.IsNil)
	c.Assert(body["code"], qt.Equals, float64(40042))
	c.Assert(body["error"], qt.Equals, "payment could not be completed: card_declined")
	c.Assert(body["message"], qt.Equals, "Your card was declined.")
}

func TestCopiesDoNotMutateDefinition(t *testing.T) {
	c := qt.New(t)
	e := ErrInvalidData.Withf("field %s", "interval").WithErr(fmt.Errorf("boom")).WithLogLevel("warn")
	c.Assert(e.Code, qt.Equals, ErrInvalidData.Code)
	c.Assert(e.Error(), qt.Equals, "invalid data provided: field interval: boom")
	c.Assert(ErrInvalidData.Error(), qt.Equals, "invalid data provided")
	c.Assert(ErrInvalidData.LogLevel, qt.Equals, "")
	c.Assert(e.LogLevel, qt.Equals, "warn")
}
