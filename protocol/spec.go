package protocol

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/datazip-inc/olake-intercom/destination"
	"github.com/datazip-inc/olake-intercom/types"
	"github.com/datazip-inc/olake-intercom/utils/logger"
	"github.com/datazip-inc/olake-intercom/utils/typeutils"
	"github.com/spf13/cobra"
)

var timeType = reflect.TypeOf(typeutils.Time{})

// specCmd prints the JSON schema of the source config, or of the destination
// writer named by --destination
var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "spec command",
	RunE: func(_ *cobra.Command, _ []string) error {
		var config any
		if destinationConfigPath == "not-set" {
			config = connector.Spec()
		} else {
			destinationType := types.DestinationType(strings.ToUpper(destinationConfigPath))

			// Get the new function for the destination type
			newFunc, found := destination.RegisteredWriters[destinationType]
			if !found {
				return fmt.Errorf("invalid destination type has been passed [%s]", destinationType)
			}
			config = newFunc().Spec()
		}

		spec, err := reflectSpec(config)
		if err != nil {
			return fmt.Errorf("failed to reflect config: %v", err)
		}

		logger.FileLogger(map[string]any{"spec": spec}, "spec", ".json")
		printMessage(types.Message{Type: types.SpecMessage, Spec: spec})
		return nil
	},
}

// reflectSpec builds a JSON schema from the json and validate tags of a config struct.
// Properties carry their declaration index as order.
func reflectSpec(config any) (map[string]any, error) {
	t := reflect.TypeOf(config)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("config must be a struct, found %v", t)
	}

	properties := map[string]any{}
	required := []string{}
	for idx := 0; idx < t.NumField(); idx++ {
		field := t.Field(idx)
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if !field.IsExported() || name == "" || name == "-" {
			continue
		}

		property := jsonType(field.Type)
		property["order"] = idx
		for _, rule := range strings.Split(field.Tag.Get("validate"), ",") {
			key, value, _ := strings.Cut(rule, "=")
			switch key {
			case "required":
				required = append(required, name)
			case "url":
				property["format"] = "uri"
			case "min", "max":
				limit, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return nil, fmt.Errorf("field %s: invalid %s rule: %s", name, key, err)
				}
				property[map[string]string{"min": "minimum", "max": "maximum"}[key]] = limit
			}
		}
		properties[name] = property
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}, nil
}

func jsonType(t reflect.Type) map[string]any {
	if t == timeType {
		return map[string]any{"type": "string", "format": "date-time"}
	}

	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": jsonType(t.Elem())}
	case reflect.Pointer:
		return jsonType(t.Elem())
	default:
		return map[string]any{"type": "object"}
	}
}
