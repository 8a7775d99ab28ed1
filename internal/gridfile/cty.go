package gridfile

import (
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ctyToNative converts a cty.Value to its natural Go counterpart. Whole
// numbers that fit become int, other numbers float64.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact && i == int64(int(i)) {
				return int(i), nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number to float64: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0)
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			k, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", k.AsString(), err)
			}
			out[k.AsString()] = native
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
