package earthengine

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
)

// Expr is one node of a server-side expression graph. Expressions are
// assembled locally and evaluated remotely; the client never executes any of
// the operations itself. An Expr is immutable once created, so values that
// share subexpressions can be serialized as a DAG without copying.
type Expr struct {
	// Exactly one of the following is set.
	invocation *invocation
	argName    string  // argument reference inside a mapped function
	lambda     *lambda // function definition passed to collection.map
}

type invocation struct {
	fn   string
	args []argument // ordered for deterministic serialization
}

type argument struct {
	name  string
	ref   *Expr // reference to another node, nil when value is a constant
	value any   // JSON-encodable constant, used when ref is nil
}

type lambda struct {
	argNames []string
	body     *Expr
}

// invoke builds a function-invocation node. Arguments are kept in call order
// so that repeated serialization of the same graph is byte-stable.
func invoke(fn string, args ...argument) *Expr {
	return &Expr{invocation: &invocation{fn: fn, args: args}}
}

func refArg(name string, e *Expr) argument { return argument{name: name, ref: e} }
func constArg(name string, v any) argument { return argument{name: name, value: v} }

// argRef builds an argument-reference node used as the body input of a
// function definition (see Collection.Map).
func argRef(name string) *Expr { return &Expr{argName: name} }

// funcDef builds a function-definition node wrapping body.
func funcDef(argNames []string, body *Expr) *Expr {
	return &Expr{lambda: &lambda{argNames: argNames, body: body}}
}

// serializedExpression is the engine's wire form of an expression graph:
// a flat table of numbered nodes plus the key of the result node.
type serializedExpression struct {
	Values map[string]*valueNode `json:"values"`
	Result string                `json:"result"`
}

// valueNode is the wire form of a single graph node. Exactly one field is set.
type valueNode struct {
	ConstantValue           any                 `json:"constantValue,omitempty"`
	ArgumentReference       string              `json:"argumentReference,omitempty"`
	ValueReference          string              `json:"valueReference,omitempty"`
	FunctionDefinitionValue *functionDefNode    `json:"functionDefinitionValue,omitempty"`
	FunctionInvocationValue *functionInvokeNode `json:"functionInvocationValue,omitempty"`
}

type functionDefNode struct {
	ArgumentNames []string `json:"argumentNames"`
	Body          string   `json:"body"`
}

type functionInvokeNode struct {
	FunctionName string                `json:"functionName"`
	Arguments    map[string]*valueNode `json:"arguments"`
}

// Serialize flattens the expression DAG into the engine wire format. Node
// keys are assigned in dependency-first order, so the result node always
// carries the highest index.
func Serialize(e *Expr) (json.RawMessage, error) {
	if e == nil {
		return nil, eris.New("earthengine: serialize nil expression")
	}

	s := &serializer{
		values: map[string]*valueNode{},
		seen:   map[*Expr]string{},
	}
	result, err := s.visit(e)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(serializedExpression{Values: s.values, Result: result})
	if err != nil {
		return nil, eris.Wrap(err, "earthengine: marshal expression")
	}
	return out, nil
}

type serializer struct {
	values map[string]*valueNode
	seen   map[*Expr]string
	next   int
}

func (s *serializer) key() string {
	k := fmt.Sprintf("%d", s.next)
	s.next++
	return k
}

// visit serializes a node and its dependencies, returning the node's key.
// Shared subexpressions are emitted once and referenced thereafter.
func (s *serializer) visit(e *Expr) (string, error) {
	if k, ok := s.seen[e]; ok {
		return k, nil
	}

	switch {
	case e.invocation != nil:
		args := make(map[string]*valueNode, len(e.invocation.args))
		for _, a := range e.invocation.args {
			if a.ref != nil {
				k, err := s.visit(a.ref)
				if err != nil {
					return "", err
				}
				args[a.name] = &valueNode{ValueReference: k}
				continue
			}
			args[a.name] = &valueNode{ConstantValue: a.value}
		}
		k := s.key()
		s.values[k] = &valueNode{FunctionInvocationValue: &functionInvokeNode{
			FunctionName: e.invocation.fn,
			Arguments:    args,
		}}
		s.seen[e] = k
		return k, nil

	case e.lambda != nil:
		body, err := s.visit(e.lambda.body)
		if err != nil {
			return "", err
		}
		k := s.key()
		s.values[k] = &valueNode{FunctionDefinitionValue: &functionDefNode{
			ArgumentNames: e.lambda.argNames,
			Body:          body,
		}}
		s.seen[e] = k
		return k, nil

	case e.argName != "":
		k := s.key()
		s.values[k] = &valueNode{ArgumentReference: e.argName}
		s.seen[e] = k
		return k, nil

	default:
		return "", eris.New("earthengine: empty expression node")
	}
}
