package watchcheck

import (
	"context"
	"fmt"
	"iter"
	"reflect"

	"github.com/pkg/errors"
)

var (
	ctxType     = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	environType = reflect.TypeOf((*Environment)(nil))
	resultType  = reflect.TypeOf((*Result)(nil))
	resultsType = reflect.TypeOf([]*Result(nil))
	builderType = reflect.TypeOf((*Builder)(nil))
	seqType     = reflect.TypeOf((iter.Seq[*Result])(nil))
)

type bindingKind int

const (
	bindEnvironment bindingKind = iota
	bindDatasource
	bindFactory
)

type paramBinding struct {
	kind    bindingKind
	typ     reflect.Type
	factory FactoryParam
}

func (b paramBinding) describe() string {
	switch b.kind {
	case bindEnvironment:
		return "*watchcheck.Environment"
	case bindFactory:
		return fmt.Sprintf("%s (factory %s)", b.typ, b.factory.factory)
	default:
		return b.typ.String()
	}
}

type returnShape int

const (
	returnSingle returnShape = iota
	returnSlice
	returnBuilder
	returnSeq
)

// signaturePlan is the frozen dissection of a check function. It is
// built once at registration time so execution never re-inspects the
// signature; invalid signatures fail before the first collection.
type signaturePlan struct {
	fn     reflect.Value
	params []paramBinding
	shape  returnShape
}

func buildPlan(c *Check, registry *DatasourceRegistry) (*signaturePlan, error) {
	fn := reflect.ValueOf(c.fn)
	typ := fn.Type()

	if typ.Kind() != reflect.Func {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "check %q: Func is %s, expected a function", c.id, typ.Kind())
	}
	if typ.IsVariadic() {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "check %q: variadic check functions are not supported", c.id)
	}
	if typ.NumIn() == 0 || typ.In(0) != ctxType {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "check %q: first parameter must be context.Context", c.id)
	}

	shape, err := detectReturnShape(c.id, typ)
	if err != nil {
		return nil, err
	}

	for idx := range c.factoryParams {
		if idx < 1 || idx >= typ.NumIn() {
			return nil, errors.Wrapf(ErrInvalidConfiguration,
				"check %q: FactoryParams index %d out of range for a function with %d parameters", c.id, idx, typ.NumIn())
		}
	}

	params := make([]paramBinding, 0, typ.NumIn()-1)
	for i := 1; i < typ.NumIn(); i++ {
		in := typ.In(i)

		if fp, ok := c.factoryParams[i]; ok {
			if !registry.HasFactory(fp.factory) {
				return nil, errors.Wrapf(ErrInvalidConfiguration,
					"check %q: parameter %d references unregistered factory %s", c.id, i, fp.factory)
			}
			params = append(params, paramBinding{kind: bindFactory, typ: in, factory: fp})
			continue
		}

		if in == environType {
			params = append(params, paramBinding{kind: bindEnvironment, typ: in})
			continue
		}

		if !registry.HasType(in) {
			return nil, errors.Wrapf(ErrInvalidConfiguration,
				"check %q: parameter %d has type %s with no registered datasource", c.id, i, in)
		}
		params = append(params, paramBinding{kind: bindDatasource, typ: in})
	}

	return &signaturePlan{fn: fn, params: params, shape: shape}, nil
}

func detectReturnShape(id string, typ reflect.Type) (returnShape, error) {
	if typ.NumOut() != 2 || typ.Out(1) != errorType {
		return 0, errors.Wrapf(ErrInvalidConfiguration,
			"check %q: check functions must return (result, error)", id)
	}

	out := typ.Out(0)
	switch out {
	case resultType:
		return returnSingle, nil
	case resultsType:
		return returnSlice, nil
	case builderType:
		return returnBuilder, nil
	}
	if out.AssignableTo(seqType) {
		return returnSeq, nil
	}

	return 0, errors.Wrapf(ErrInvalidConfiguration,
		"check %q: unsupported result type %s, expected *Result, []*Result, *Builder or iter.Seq[*Result]", id, out)
}

// call resolves every bound parameter and invokes the check function.
func (p *signaturePlan) call(ctx context.Context, registry *DatasourceRegistry, targetEnv *Environment) ([]*Result, error) {
	args := make([]reflect.Value, 0, len(p.params)+1)
	args = append(args, reflect.ValueOf(ctx))

	for i, param := range p.params {
		switch param.kind {
		case bindEnvironment:
			args = append(args, reflect.ValueOf(targetEnv))

		case bindFactory:
			instance, err := registry.ResolveFromFactory(ctx, param.factory)
			if err != nil {
				return nil, errors.Wrapf(err, "resolving factory parameter %d", i+1)
			}
			if instance == nil {
				return nil, errors.Errorf("factory %s produced a nil datasource for parameter %d", param.factory.factory, i+1)
			}
			val := reflect.ValueOf(instance)
			if !val.Type().AssignableTo(param.typ) {
				return nil, errors.Errorf("factory %s produced %s, parameter %d expects %s",
					param.factory.factory, val.Type(), i+1, param.typ)
			}
			args = append(args, val)

		default:
			instance, err := registry.Resolve(ctx, param.typ)
			if err != nil {
				return nil, errors.Wrapf(err, "resolving datasource parameter %d", i+1)
			}
			if instance == nil {
				return nil, errors.Errorf("datasource %s resolved to nil for parameter %d", param.typ, i+1)
			}
			args = append(args, reflect.ValueOf(instance))
		}
	}

	out := p.fn.Call(args)
	if errVal := out[1]; !errVal.IsNil() {
		return nil, errVal.Interface().(error)
	}

	return p.results(out[0])
}

func (p *signaturePlan) results(val reflect.Value) ([]*Result, error) {
	switch p.shape {
	case returnSlice:
		results := val.Interface().([]*Result)
		for i, res := range results {
			if res == nil {
				return nil, errors.Errorf("check returned a nil result at index %d", i)
			}
		}

		return results, nil

	case returnBuilder:
		if val.IsNil() {
			return nil, errors.New("check returned a nil builder")
		}

		return []*Result{val.Interface().(*Builder).Finalize()}, nil

	case returnSeq:
		if val.IsNil() {
			return nil, errors.New("check returned a nil result sequence")
		}
		seq := val.Convert(seqType).Interface().(iter.Seq[*Result])
		var results []*Result
		for res := range seq {
			if res == nil {
				return nil, errors.Errorf("check yielded a nil result at index %d", len(results))
			}
			results = append(results, res)
		}

		return results, nil

	default:
		if val.IsNil() {
			return nil, errors.New("check returned a nil result")
		}

		return []*Result{val.Interface().(*Result)}, nil
	}
}

// bindings describes the non-context parameters in order, for
// diagnostics and the check listing.
func (p *signaturePlan) bindings() []string {
	out := make([]string, 0, len(p.params))
	for _, param := range p.params {
		out = append(out, param.describe())
	}

	return out
}
