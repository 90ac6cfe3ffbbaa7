package query

import (
	"reflect"
	"time"

	"memris/errs"
	"memris/typecode"
)

// toInt64 normalizes one compiled argument into the int64 form a column
// of type code tc stores: temporal codes through an epoch integer,
// floats through their sortable encoding, everything else as a plain
// widened integer.
func toInt64(op string, v any, tc typecode.Code) (int64, error) {
	switch tc {
	case typecode.Float32:
		f, err := toFloat64(op, v)
		if err != nil {
			return 0, err
		}
		return int64(typecode.FloatToSortable(float32(f))), nil
	case typecode.Float64:
		f, err := toFloat64(op, v)
		if err != nil {
			return 0, err
		}
		return typecode.DoubleToSortable(f), nil
	case typecode.Instant, typecode.DateTime:
		if t, ok := v.(time.Time); ok {
			return t.UnixMilli(), nil
		}
	case typecode.Date, typecode.LocalDate:
		if t, ok := v.(time.Time); ok {
			return t.Unix() / 86400, nil
		}
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return 0, errs.Newf(op, errs.InvalidArgument, "cannot interpret %T as %s argument", v, tc)
}

func toFloat64(op string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, errs.Newf(op, errs.InvalidArgument, "cannot interpret %T as a float argument", v)
}

func toString(op string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errs.Newf(op, errs.InvalidArgument, "cannot interpret %T as a string argument", v)
	}
	return s, nil
}

func toBool(op string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errs.Newf(op, errs.InvalidArgument, "cannot interpret %T as a bool argument", v)
	}
	return b, nil
}

// toInt64Slice expands an IN/NOT_IN argument into a typed int64 slice.
// The argument must be iterable; anything else is InvalidArgument.
func toInt64Slice(op string, v any, tc typecode.Code) ([]int64, error) {
	elems, err := toSlice(op, v)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(elems))
	for i, e := range elems {
		n, err := toInt64(op, e, tc)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// toStringSlice expands an IN/NOT_IN argument into a string slice.
func toStringSlice(op string, v any) ([]string, error) {
	elems, err := toSlice(op, v)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(elems))
	for i, e := range elems {
		s, err := toString(op, e)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func toSlice(op string, v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errs.Newf(op, errs.InvalidArgument, "IN/NOT_IN argument %v is not iterable", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func argAt(op string, args Args, i int) (any, error) {
	if i < 0 || i >= len(args) {
		return nil, errs.Newf(op, errs.InvalidArgument, "argument index %d out of range (arity %d)", i, len(args))
	}
	return args[i], nil
}

func requireStringable(op string, tc typecode.Code) error {
	if tc != typecode.String && tc != typecode.BigDec && tc != typecode.BigInt {
		return errs.Newf(op, errs.SchemaMismatch, "%s is not a string-backed column", tc)
	}
	return nil
}
