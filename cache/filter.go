package cache

import (
	"fmt"
	"reflect"

	"github.com/google/cel-go/cel"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
)

// Filter evaluates a CEL expression against cached image records, e.g.
// `img['folder'] == 'travel' && 'sunset' in img['tags']`. The expression sees
// one variable, img, a map of the record's listed fields.
type Filter struct {
	Expression string
	program    cel.Program
}

// NewFilter compiles a CEL filter expression.
func NewFilter(expression string) (*Filter, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression can't be empty string")
	}
	env, err := cel.NewEnv(
		cel.Variable("img", cel.MapType(cel.StringType, cel.AnyType)),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating CEL environment: %v", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("error compiling CEL expression: %v", issues.Err())
	}
	p, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("error creating Program: %v", err)
	}
	return &Filter{
		Expression: expression,
		program:    p,
	}, nil
}

// Match evaluates the filter against one record.
func (f *Filter) Match(rec photarium.ImageRecord) (bool, error) {
	out, _, err := f.program.Eval(map[string]any{
		"img": recordMap(rec),
	})
	if err != nil {
		return false, fmt.Errorf("error evaluating CEL expression: %v", err)
	}
	nv, err := out.ConvertToNative(reflect.TypeOf(false))
	if err != nil {
		return false, fmt.Errorf("filter expression must evaluate to a boolean: %v", err)
	}
	b, ok := nv.(bool)
	if !ok {
		return false, fmt.Errorf("filter expression must evaluate to a boolean, got %v", nv)
	}
	return b, nil
}

// Apply returns the records matching the filter, preserving order.
func (f *Filter) Apply(recs []photarium.ImageRecord) ([]photarium.ImageRecord, error) {
	out := make([]photarium.ImageRecord, 0, len(recs))
	for _, r := range recs {
		ok, err := f.Match(r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func recordMap(rec photarium.ImageRecord) map[string]any {
	tags := make([]any, len(rec.Meta.Tags))
	for i, t := range rec.Meta.Tags {
		tags[i] = t
	}
	return map[string]any{
		"id":          rec.ID,
		"filename":    rec.Filename,
		"uploaded":    rec.Uploaded.Unix(),
		"folder":      rec.Meta.Folder,
		"tags":        tags,
		"namespace":   rec.Meta.Namespace,
		"description": rec.Meta.Description,
		"altText":     rec.Meta.AltText,
		"displayName": rec.Meta.DisplayName,
		"contentHash": rec.Meta.ContentHash,
	}
}
