package core

import (
	"fmt"

	"github.com/comalice/scxmlrun/internal/datamodel"
	"github.com/comalice/scxmlrun/internal/graph"
	"github.com/comalice/scxmlrun/internal/primitives"
)

// The executable-content kinds. Each is a small struct implementing
// graph.ExecutableContent via the IsExecutableContent marker method,
// dispatched by type switch in Execute.

type Log struct {
	Label string
	Expr  string
}

func (Log) IsExecutableContent() {}

type Raise struct {
	Event string
}

func (Raise) IsExecutableContent() {}

type Assign struct {
	Location string
	Expr     string
}

func (Assign) IsExecutableContent() {}

type Script struct {
	Body string
}

func (Script) IsExecutableContent() {}

type IfBranch struct {
	Cond string // empty on the final else branch
	Body []graph.ExecutableContent
}

type If struct {
	Branches []IfBranch
}

func (If) IsExecutableContent() {}

type Send struct {
	ID         string
	IDLocation string
	Event      string
	EventExpr  string
	Target     string
	TargetExpr string
	Type       string
	TypeExpr   string
	Delay      string
	DelayExpr  string
	Namelist   []string
	Params     map[string]string
	ContentExpr string
	HintsExpr  string
}

func (Send) IsExecutableContent() {}

type Cancel struct {
	SendID      string
	SendIDExpr  string
}

func (Cancel) IsExecutableContent() {}

type StartSession struct {
	Src      string
	SrcExpr  string
	Content  string
	IDLocation string
}

func (StartSession) IsExecutableContent() {}

// ExecContext bundles everything executable content needs: the evaluator
// scope, hooks back onto the owning interpreter for raise/send/cancel, and
// the strict-mode flag controlling error escalation.
type ExecContext struct {
	Eval     datamodel.Evaluator
	Strict   bool
	Raise    func(primitives.Event)
	Send     func(Send) error
	Cancel   func(Cancel) error
	StartSession func(StartSession) error
	Log      func(label string, value any)
}

// Execute dispatches one executable-content element by type switch over the
// full set of supported executable-content kinds.
func Execute(ctx *ExecContext, c graph.ExecutableContent) error {
	switch v := c.(type) {
	case Log:
		val, err := evalMaybe(ctx, v.Expr)
		if err != nil {
			return platformErr(ctx, "error.execution", err)
		}
		if ctx.Log != nil {
			ctx.Log(v.Label, val)
		}
		return nil
	case Raise:
		ctx.Raise(primitives.NewInternalEvent(v.Event, nil))
		return nil
	case Assign:
		if !ctx.Eval.Has(v.Location) {
			return platformErr(ctx, "error.execution", &datamodel.EvalError{
				Kind: datamodel.KindNameError,
				Err:  fmt.Errorf("core: assign location %q not present in data model", v.Location),
			})
		}
		val, err := ctx.Eval.Eval(v.Expr)
		if err != nil {
			return platformErr(ctx, "error.execution", err)
		}
		if err := ctx.Eval.Set(v.Location, val); err != nil {
			return platformErr(ctx, "error.execution", err)
		}
		return nil
	case Script:
		if err := ctx.Eval.Exec(v.Body); err != nil {
			return platformErr(ctx, "error.execution", err)
		}
		return nil
	case If:
		for _, br := range v.Branches {
			take := br.Cond == ""
			if !take {
				val, err := ctx.Eval.Eval(br.Cond)
				if err != nil {
					return platformErr(ctx, "error.execution", err)
				}
				b, _ := val.(bool)
				take = b
			}
			if take {
				for _, inner := range br.Body {
					if err := Execute(ctx, inner); err != nil {
						return err
					}
				}
				return nil
			}
		}
		return nil
	case Send:
		resolved, err := resolveSend(ctx, v)
		if err != nil {
			return platformErr(ctx, "error.execution", err)
		}
		if err := ctx.Send(resolved); err != nil {
			return platformErr(ctx, "error.communication", err)
		}
		return nil
	case Cancel:
		resolved := v
		if v.SendIDExpr != "" {
			val, err := ctx.Eval.Eval(v.SendIDExpr)
			if err != nil {
				return platformErr(ctx, "error.execution", err)
			}
			resolved.SendID = fmt.Sprint(val)
		}
		if err := ctx.Cancel(resolved); err != nil {
			return platformErr(ctx, "error.execution", err)
		}
		return nil
	case StartSession:
		if err := ctx.StartSession(v); err != nil {
			return platformErr(ctx, "error.execution", err)
		}
		return nil
	default:
		return fmt.Errorf("core: unknown executable content %T", c)
	}
}

// resolveSend evaluates the *Expr attribute variants of Send into their
// static counterparts; the Expr form wins when both are present.
func resolveSend(ctx *ExecContext, v Send) (Send, error) {
	if v.EventExpr != "" {
		val, err := ctx.Eval.Eval(v.EventExpr)
		if err != nil {
			return v, err
		}
		v.Event = fmt.Sprint(val)
	}
	if v.TargetExpr != "" {
		val, err := ctx.Eval.Eval(v.TargetExpr)
		if err != nil {
			return v, err
		}
		v.Target = fmt.Sprint(val)
	}
	if v.TypeExpr != "" {
		val, err := ctx.Eval.Eval(v.TypeExpr)
		if err != nil {
			return v, err
		}
		v.Type = fmt.Sprint(val)
	}
	if v.DelayExpr != "" {
		val, err := ctx.Eval.Eval(v.DelayExpr)
		if err != nil {
			return v, err
		}
		v.Delay = fmt.Sprint(val)
	}
	return v, nil
}

func evalMaybe(ctx *ExecContext, expr string) (any, error) {
	if expr == "" {
		return nil, nil
	}
	return ctx.Eval.Eval(expr)
}

// platformErr turns an evaluator/runtime error into the matching
// error.execution.* / error.communication.* platform event and raises it
// internally, rather than propagating a Go error out of the microstep
// (strict mode additionally returns it so the caller can log at a higher
// level).
func platformErr(ctx *ExecContext, family string, err error) error {
	kind := "error"
	if ee, ok := err.(*datamodel.EvalError); ok {
		kind = string(ee.Kind)
	}
	ctx.Raise(primitives.NewPlatformEvent(family+"."+kind, err.Error()))
	if ctx.Strict {
		return err
	}
	return nil
}
