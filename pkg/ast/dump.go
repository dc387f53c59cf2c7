package ast

import "fmt"

// Dump renders a node tree as nested maps and slices suitable for
// encoding/json or yaml. Spans are reduced to "line:col".
func Dump(n Node) map[string]any {
	if n == nil {
		return nil
	}
	out := map[string]any{
		"kind": n.Kind(),
		"at":   fmtPos(n.NodeSpan()),
	}
	switch v := n.(type) {
	case *NumberLiteral:
		out["value"] = v.Value
	case *StringLiteral:
		out["raw"] = v.Raw
	case *Variable:
		out["name"] = v.Name
	case *FunctionCall:
		out["name"] = v.Name
		out["args"] = dumpList(v.Args)
	case *UnaryOp:
		out["op"] = string(v.Op)
		out["operand"] = Dump(v.Operand)
	case *BinaryOp:
		out["op"] = string(v.Op)
		out["left"] = Dump(v.Left)
		out["right"] = Dump(v.Right)
	case *Block:
		out["statements"] = dumpList(v.Statements)
	case *If:
		out["cond"] = Dump(v.Cond)
		out["then"] = Dump(v.Then)
		if v.Else != nil {
			out["else"] = Dump(v.Else)
		}
	case *FunctionDeclaration:
		params := v.Params
		if params == nil {
			params = []string{}
		}
		out["name"] = v.Name
		out["params"] = params
		out["body"] = Dump(v.Body)
	case *Return:
		out["value"] = Dump(v.Value)
	case *Program:
		out["file"] = v.Span.File
		out["body"] = Dump(v.Body)
	}
	return out
}

func dumpList(nodes []Node) []any {
	items := make([]any, len(nodes))
	for i, n := range nodes {
		items[i] = Dump(n)
	}
	return items
}

func fmtPos(s Span) string {
	return fmt.Sprintf("%d:%d", s.StartLine, s.StartCol)
}
