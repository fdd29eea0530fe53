package datamodel

import (
	"fmt"

	"github.com/dop251/goja"
)

// GojaEvaluator implements Evaluator over an embedded ECMAScript VM, the
// conventional "ecmascript" SCXML datamodel binding: the data model is the
// VM's global object, assignment locations are plain JS expressions
// ("foo", "foo.bar", "arr[0]"), and guard/value expressions are whatever the
// VM can evaluate.
type GojaEvaluator struct {
	vm *goja.Runtime
}

// NewGojaEvaluator constructs an Evaluator with an empty global scope.
func NewGojaEvaluator() *GojaEvaluator {
	return &GojaEvaluator{vm: goja.New()}
}

func (g *GojaEvaluator) Eval(expr string) (any, error) {
	if expr == "" {
		return nil, nil
	}
	v, err := g.vm.RunString(expr)
	if err != nil {
		return nil, wrapGojaErr(err)
	}
	return v.Export(), nil
}

func (g *GojaEvaluator) Exec(body string) error {
	_, err := g.vm.RunString(body)
	if err != nil {
		return wrapGojaErr(err)
	}
	return nil
}

func (g *GojaEvaluator) Has(location string) bool {
	v, err := g.vm.RunString(fmt.Sprintf("(typeof (%s) !== 'undefined')", location))
	if err != nil {
		return false
	}
	return v.ToBoolean()
}

func (g *GojaEvaluator) Set(location string, value any) error {
	const tmp = "__scxml_assign_tmp__"
	if err := g.vm.Set(tmp, value); err != nil {
		return &EvalError{Kind: KindError, Err: err}
	}
	_, err := g.vm.RunString(fmt.Sprintf("%s = %s;", location, tmp))
	if err != nil {
		return wrapGojaErr(err)
	}
	return nil
}

func (g *GojaEvaluator) Get(location string) (any, error) {
	return g.Eval(location)
}

func (g *GojaEvaluator) BindEvent(name string, data any, kind, sendid, origin, origintype, invokeid string) {
	obj := g.vm.NewObject()
	_ = obj.Set("name", name)
	_ = obj.Set("data", data)
	_ = obj.Set("type", kind)
	_ = obj.Set("sendid", sendid)
	_ = obj.Set("origin", origin)
	_ = obj.Set("origintype", origintype)
	_ = obj.Set("invokeid", invokeid)
	_ = g.vm.Set("_event", obj)
}

func (g *GojaEvaluator) BindIn(fn func(stateID string) bool) {
	_ = g.vm.Set("In", func(stateID string) bool { return fn(stateID) })
}

func (g *GojaEvaluator) BindGlobal(name string, value any) error {
	if err := g.vm.Set(name, value); err != nil {
		return &EvalError{Kind: KindError, Err: err}
	}
	return nil
}

func wrapGojaErr(err error) error {
	if exc, ok := err.(*goja.Exception); ok {
		return &EvalError{Kind: classify(exc), Err: exc}
	}
	return &EvalError{Kind: KindSyntax, Err: err}
}

func classify(exc *goja.Exception) ErrorKind {
	v := exc.Value()
	if obj, ok := v.(*goja.Object); ok {
		switch obj.ClassName() {
		case "TypeError":
			return KindTypeError
		case "ReferenceError":
			return KindNameError
		case "SyntaxError":
			return KindSyntax
		}
	}
	return KindError
}
