package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// stringMap evaluates an object-valued attribute into a Go string map.
// Values of any primitive type are accepted and converted, so a numeric
// parameter does not need quoting in the config.
func stringMap(expression hcl.Expression, attribute string) (map[string]string, error) {
	if expression == nil {
		return nil, nil
	}
	value, diags := expression.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating %s: %w", attribute, diags)
	}
	if value.IsNull() {
		return nil, nil
	}
	if !value.Type().IsObjectType() && !value.Type().IsMapType() {
		return nil, fmt.Errorf("%s must be a map of strings, got %s", attribute, value.Type().FriendlyName())
	}
	result := make(map[string]string, value.LengthInt())
	for iterator := value.ElementIterator(); iterator.Next(); {
		key, element := iterator.Element()
		converted, err := convert.Convert(element, cty.String)
		if err != nil {
			return nil, fmt.Errorf("value of %s.%s: %w", attribute, key.AsString(), err)
		}
		if converted.IsNull() {
			continue
		}
		result[key.AsString()] = converted.AsString()
	}
	return result, nil
}
