package main

import (
	"encoding/json"
	"fmt"

	"memris/query"
	"memris/typecode"
)

// jsonCondition mirrors query.Condition with string-named operator/
// combinator fields, the shape a JSON compiled-plan file uses.
type jsonCondition struct {
	Column     int           `json:"column"`
	Operator   string        `json:"operator"`
	ArgIndex   int           `json:"arg_index"`
	IgnoreCase bool          `json:"ignore_case"`
	TypeCode   typecode.Code `json:"type_code"`
	Next       string        `json:"next"`
}

type jsonOrderKey struct {
	Column    int  `json:"column"`
	Ascending bool `json:"ascending"`
}

// jsonPlan is the external query-producer contract (spec §6): a compiled
// plan plus the argument vector it indexes into, as a single file.
type jsonPlan struct {
	Opcode     string          `json:"opcode"`
	Conditions []jsonCondition `json:"conditions"`
	OrderBy    []jsonOrderKey  `json:"order_by"`
	Limit      int             `json:"limit"`
	Args       []any           `json:"args"`
}

var opcodeNames = map[string]query.Opcode{
	"find_by_id":       query.OpFindByID,
	"find_all_by_id":   query.OpFindAllByID,
	"find_all":         query.OpFindAll,
	"find":             query.OpFind,
	"count":            query.OpCount,
	"count_all":        query.OpCountAll,
	"exists":           query.OpExists,
	"exists_by_id":     query.OpExistsByID,
	"save_one":         query.OpSaveOne,
	"save_all":         query.OpSaveAll,
	"delete_one":       query.OpDeleteOne,
	"delete_all":       query.OpDeleteAll,
	"delete_by_id":     query.OpDeleteByID,
	"delete_all_by_id": query.OpDeleteAllByID,
}

var operatorNames = map[string]query.Operator{
	"eq":                query.EQ,
	"ne":                query.NE,
	"gt":                query.GT,
	"gte":               query.GTE,
	"lt":                query.LT,
	"lte":               query.LTE,
	"between":           query.BETWEEN,
	"in":                query.IN,
	"not_in":            query.NOT_IN,
	"starting_with":     query.STARTING_WITH,
	"ending_with":       query.ENDING_WITH,
	"not_starting_with": query.NOT_STARTING_WITH,
	"not_ending_with":   query.NOT_ENDING_WITH,
	"like":              query.LIKE,
	"is_null":           query.IS_NULL,
	"not_null":          query.NOT_NULL,
}

var combinatorNames = map[string]query.Combinator{
	"":    query.AND,
	"and": query.AND,
	"or":  query.OR,
}

// loadPlan decodes raw JSON into a compiled query.Plan plus its argument
// vector, resolving every string-named field against the fixed enum
// tables above.
func loadPlan(data []byte) (query.Plan, query.Args, error) {
	var jp jsonPlan
	if err := json.Unmarshal(data, &jp); err != nil {
		return query.Plan{}, nil, fmt.Errorf("decode plan: %w", err)
	}

	opcode, ok := opcodeNames[jp.Opcode]
	if !ok {
		return query.Plan{}, nil, fmt.Errorf("unknown opcode %q", jp.Opcode)
	}

	conditions := make([]query.Condition, len(jp.Conditions))
	for i, jc := range jp.Conditions {
		operator, ok := operatorNames[jc.Operator]
		if !ok {
			return query.Plan{}, nil, fmt.Errorf("condition %d: unknown operator %q", i, jc.Operator)
		}
		next, ok := combinatorNames[jc.Next]
		if !ok {
			return query.Plan{}, nil, fmt.Errorf("condition %d: unknown combinator %q", i, jc.Next)
		}
		conditions[i] = query.Condition{
			Column:     jc.Column,
			Operator:   operator,
			ArgIndex:   jc.ArgIndex,
			IgnoreCase: jc.IgnoreCase,
			TypeCode:   jc.TypeCode,
			Next:       next,
		}
	}

	orderBy := make([]query.OrderKey, len(jp.OrderBy))
	for i, jk := range jp.OrderBy {
		orderBy[i] = query.OrderKey{Column: jk.Column, Ascending: jk.Ascending}
	}

	args, err := coerceArgs(jp.Args, conditions)
	if err != nil {
		return query.Plan{}, nil, err
	}

	return query.Plan{
		Opcode:     opcode,
		Conditions: conditions,
		OrderBy:    orderBy,
		Limit:      jp.Limit,
	}, args, nil
}

// coerceArgs widens JSON-decoded arguments (always float64 or string or
// bool from encoding/json) to the native Go type each indexed
// condition's type code expects, since query.ToColumnInt64 recognizes
// int-family types but not the float64 json.Unmarshal produces for every
// JSON number.
func coerceArgs(raw []any, conditions []query.Condition) (query.Args, error) {
	tcByArgIndex := make(map[int]typecode.Code)
	for _, c := range conditions {
		tcByArgIndex[c.ArgIndex] = c.TypeCode
		if c.Operator == query.BETWEEN {
			tcByArgIndex[c.ArgIndex+1] = c.TypeCode
		}
	}

	out := make(query.Args, len(raw))
	for i, v := range raw {
		tc, known := tcByArgIndex[i]
		if !known {
			out[i] = v
			continue
		}
		coerced, err := coerceArg(v, tc)
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		out[i] = coerced
	}
	return out, nil
}

func coerceArg(v any, tc typecode.Code) (any, error) {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			c, err := coerceArg(e, tc)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case float64:
		if tc == typecode.Float32 || tc == typecode.Float64 {
			return x, nil
		}
		return int64(x), nil
	default:
		return v, nil
	}
}
