package registry

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/aretw0/gameflow/pkg/domain"
)

// Builtin behavior names.
const (
	PredicateCompare = "compare"
	PredicateVar     = "var"
	PredicateInput   = "input"
	PredicateEvent   = "event"
	PredicateAll     = "all"
	PredicateAny     = "any"
	PredicateXor     = "xor"
	PredicateTimer   = "timer"

	ActionSet        = "set"
	ActionIncrement  = "increment"
	ActionUnset      = "unset"
	ActionFromEvent  = "from_event"
	ActionCount      = "count"
	ActionLog        = "log"
	ActionStartTimer = "start_timer"
)

// RegisterBuiltins adds the builtin predicates and actions to r.
//
// Logical predicates (all, any, xor) evaluate nested conditions, each naming
// another predicate of r, so they also combine behaviors registered later.
func RegisterBuiltins(r *Registry) {
	r.RegisterPredicate(PredicateCompare, compare)
	r.RegisterPredicate(PredicateVar, flag("var"))
	r.RegisterPredicate(PredicateInput, flag("input"))
	r.RegisterPredicate(PredicateEvent, eventIs)
	r.RegisterPredicate(PredicateAll, r.logical(func(n, total int) bool { return n == total }))
	r.RegisterPredicate(PredicateAny, r.logical(func(n, _ int) bool { return n > 0 }))
	r.RegisterPredicate(PredicateXor, r.logical(func(n, _ int) bool { return n == 1 }))
	r.RegisterPredicate(PredicateTimer, timer)

	r.RegisterAction(ActionSet, set)
	r.RegisterAction(ActionIncrement, increment)
	r.RegisterAction(ActionUnset, unset)
	r.RegisterAction(ActionFromEvent, fromEvent)
	r.RegisterAction(ActionCount, count)
	r.RegisterAction(ActionLog, logMessage)
	r.RegisterAction(ActionStartTimer, startTimer)
}

type compareParams struct {
	Left  string `mapstructure:"left"`
	Op    string `mapstructure:"op"`
	Right string `mapstructure:"right"`
	Value any    `mapstructure:"value"`
}

// compare tests a reference against another reference (right) or a literal (value).
// A missing left operand compares false.
func compare(_ context.Context, s domain.Scope) (bool, error) {
	var p compareParams
	if err := decodeParams(s.Params, &p); err != nil {
		return false, err
	}
	if p.Left == "" {
		return false, fmt.Errorf("compare: left is required")
	}
	if p.Op == "" {
		p.Op = "=="
	}

	left, found, err := resolve(s, p.Left)
	if err != nil || !found {
		return false, err
	}
	right := domain.NormalizeValue(p.Value)
	if p.Right != "" {
		right, found, err = resolve(s, p.Right)
		if err != nil || !found {
			return false, err
		}
	}
	return compareValues(left, p.Op, right)
}

func compareValues(left any, op string, right any) (bool, error) {
	switch op {
	case "==":
		return reflect.DeepEqual(domain.NormalizeValue(left), domain.NormalizeValue(right)), nil
	case "!=":
		return !reflect.DeepEqual(domain.NormalizeValue(left), domain.NormalizeValue(right)), nil
	case "<", "<=", ">", ">=":
	default:
		return false, fmt.Errorf("compare: unknown operator %q", op)
	}

	if lf, ok := toFloat(left); ok {
		rf, ok := toFloat(right)
		if !ok {
			return false, fmt.Errorf("compare: cannot order number against %T", right)
		}
		return order(lf < rf, lf == rf, op), nil
	}
	if ls, ok := left.(string); ok {
		rs, ok := right.(string)
		if !ok {
			return false, fmt.Errorf("compare: cannot order string against %T", right)
		}
		return order(ls < rs, ls == rs, op), nil
	}
	return false, fmt.Errorf("compare: %T values are not ordered", left)
}

func order(less, equal bool, op string) bool {
	switch op {
	case "<":
		return less
	case "<=":
		return less || equal
	case ">":
		return !less && !equal
	default:
		return !less
	}
}

type nameParams struct {
	Name string `mapstructure:"name"`
}

// flag reads a bool variable or input. A missing value is false.
func flag(source string) domain.Predicate {
	return func(_ context.Context, s domain.Scope) (bool, error) {
		var p nameParams
		if err := decodeParams(s.Params, &p); err != nil {
			return false, err
		}
		v, found, err := resolve(s, source+"."+p.Name)
		if err != nil || !found {
			return false, err
		}
		b, ok := v.(bool)
		if !ok {
			return false, fmt.Errorf("%s %q is %T, not bool", source, p.Name, v)
		}
		return b, nil
	}
}

func eventIs(_ context.Context, s domain.Scope) (bool, error) {
	var p nameParams
	if err := decodeParams(s.Params, &p); err != nil {
		return false, err
	}
	if p.Name == "" {
		return false, fmt.Errorf("event: name is required")
	}
	return s.Event.Name == p.Name, nil
}

type condition struct {
	Behavior string         `mapstructure:"behavior"`
	Params   map[string]any `mapstructure:"params"`
}

type logicalParams struct {
	Conditions []condition `mapstructure:"conditions"`
}

// logical evaluates every nested condition and passes the number that held
// to decide. All conditions are evaluated so errors are never masked.
func (r *Registry) logical(decide func(n, total int) bool) domain.Predicate {
	return func(ctx context.Context, s domain.Scope) (bool, error) {
		var p logicalParams
		if err := decodeParams(s.Params, &p); err != nil {
			return false, err
		}
		held := 0
		for i, c := range p.Conditions {
			pred, ok := r.Predicate(c.Behavior)
			if !ok {
				return false, fmt.Errorf("condition %d: %w: %q", i, domain.ErrUnknownBehavior, c.Behavior)
			}
			sub := s
			sub.Params = domain.NormalizeMap(c.Params)
			ok, err := pred(ctx, sub)
			if err != nil {
				return false, fmt.Errorf("condition %d (%s): %w", i, c.Behavior, err)
			}
			if ok {
				held++
			}
		}
		return decide(held, len(p.Conditions)), nil
	}
}

type setParams struct {
	Values map[string]any `mapstructure:"values"`
}

func set(_ context.Context, s domain.Scope) (map[string]any, error) {
	var p setParams
	if err := decodeParams(s.Params, &p); err != nil {
		return nil, err
	}
	return domain.NormalizeMap(p.Values), nil
}

type incrementParams struct {
	Var string   `mapstructure:"var"`
	By  *float64 `mapstructure:"by"`
}

// increment adds by (default 1) to a numeric variable, starting from zero.
func increment(_ context.Context, s domain.Scope) (map[string]any, error) {
	var p incrementParams
	if err := decodeParams(s.Params, &p); err != nil {
		return nil, err
	}
	if p.Var == "" {
		return nil, fmt.Errorf("increment: var is required")
	}
	by := 1.0
	if p.By != nil {
		by = *p.By
	}
	current := 0.0
	if v, ok := s.Variables[p.Var]; ok {
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("increment: variable %q is %T, not a number", p.Var, v)
		}
		current = f
	}
	return map[string]any{p.Var: current + by}, nil
}

type unsetParams struct {
	Vars []string `mapstructure:"vars"`
}

func unset(_ context.Context, s domain.Scope) (map[string]any, error) {
	var p unsetParams
	if err := decodeParams(s.Params, &p); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(p.Vars))
	for _, name := range p.Vars {
		out[name] = nil
	}
	return out, nil
}

type fromEventParams struct {
	Fields map[string]string `mapstructure:"fields"`
	NameTo string            `mapstructure:"name_to"`
}

// fromEvent copies event payload fields into variables (field -> variable).
// Fields absent from the payload are left untouched.
func fromEvent(_ context.Context, s domain.Scope) (map[string]any, error) {
	var p fromEventParams
	if err := decodeParams(s.Params, &p); err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for field, variable := range p.Fields {
		if v, ok := s.Event.Payload[field]; ok {
			out[variable] = v
		}
	}
	if p.NameTo != "" && s.Event.Name != "" {
		out[p.NameTo] = s.Event.Name
	}
	return out, nil
}

type countParams struct {
	Var   string `mapstructure:"var"`
	Limit int    `mapstructure:"limit"`
	Flag  string `mapstructure:"flag"`
}

// count is a do-N counter: it increments var until it reaches limit and
// keeps flag set to whether the limit has been reached.
func count(_ context.Context, s domain.Scope) (map[string]any, error) {
	var p countParams
	if err := decodeParams(s.Params, &p); err != nil {
		return nil, err
	}
	if p.Var == "" || p.Limit <= 0 {
		return nil, fmt.Errorf("count: var and a positive limit are required")
	}
	n := 0.0
	if v, ok := s.Variables[p.Var]; ok {
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("count: variable %q is %T, not a number", p.Var, v)
		}
		n = f
	}
	if n < float64(p.Limit) {
		n++
	}
	out := map[string]any{p.Var: n}
	if p.Flag != "" {
		out[p.Flag] = n >= float64(p.Limit)
	}
	return out, nil
}

type logParams struct {
	Message string   `mapstructure:"message"`
	Level   string   `mapstructure:"level"`
	Vars    []string `mapstructure:"vars"`
}

// logMessage writes message to the engine logger, attaching the named
// variables. It never changes the state.
func logMessage(ctx context.Context, s domain.Scope) (map[string]any, error) {
	var p logParams
	if err := decodeParams(s.Params, &p); err != nil {
		return nil, err
	}
	var level slog.Level
	if p.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(p.Level))); err != nil {
			return nil, fmt.Errorf("log: %w", err)
		}
	}
	if s.Logger == nil {
		return nil, nil
	}
	args := make([]any, 0, 2*len(p.Vars))
	for _, name := range p.Vars {
		args = append(args, slog.Any(name, s.Variables[name]))
	}
	s.Logger.Log(ctx, level, p.Message, args...)
	return nil, nil
}

type timerParams struct {
	Var   string `mapstructure:"var"`
	Steps int    `mapstructure:"steps"`
}

// startTimer records the current step count in var.
func startTimer(_ context.Context, s domain.Scope) (map[string]any, error) {
	var p timerParams
	if err := decodeParams(s.Params, &p); err != nil {
		return nil, err
	}
	if p.Var == "" {
		return nil, fmt.Errorf("start_timer: var is required")
	}
	return map[string]any{p.Var: float64(s.Steps)}, nil
}

// timer holds once steps transitions were committed after start_timer
// wrote var. An unstarted timer never holds.
func timer(_ context.Context, s domain.Scope) (bool, error) {
	var p timerParams
	if err := decodeParams(s.Params, &p); err != nil {
		return false, err
	}
	if p.Var == "" || p.Steps <= 0 {
		return false, fmt.Errorf("timer: var and a positive steps are required")
	}
	v, ok := s.Variables[p.Var]
	if !ok {
		return false, nil
	}
	started, ok := toFloat(v)
	if !ok {
		return false, fmt.Errorf("timer: variable %q is %T, not a number", p.Var, v)
	}
	return float64(s.Steps)-started >= float64(p.Steps), nil
}
