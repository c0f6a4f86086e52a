// Package formenc encodes form bodies using the bracket syntax Steam's
// endpoints expect: lists become `key[]=a&key[]=b` (no indices) and nested
// fields become `key[name]=value`.
package formenc

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Field is a single named form value. Value may be a string, bool, any
// integer type, a []string, a []int or a nested Fields.
type Field struct {
	Name  string
	Value any
}

// Fields keeps insertion order, which is preserved in the encoded output.
type Fields []Field

func (f Fields) Add(name string, value any) Fields {
	return append(f, Field{Name: name, Value: value})
}

// Encode renders the fields as an x-www-form-urlencoded body.
func Encode(fields Fields) string {
	var pairs []string
	for _, field := range fields {
		encodeValue(&pairs, url.QueryEscape(field.Name), field.Value)
	}
	return strings.Join(pairs, "&")
}

func encodeValue(pairs *[]string, key string, value any) {
	switch v := value.(type) {
	case Fields:
		for _, nested := range v {
			encodeValue(pairs, key+"["+url.QueryEscape(nested.Name)+"]", nested.Value)
		}
	case []string:
		for _, item := range v {
			*pairs = append(*pairs, key+"[]="+url.QueryEscape(item))
		}
	case []int:
		for _, item := range v {
			*pairs = append(*pairs, key+"[]="+strconv.Itoa(item))
		}
	case []uint32:
		for _, item := range v {
			*pairs = append(*pairs, key+"[]="+strconv.FormatUint(uint64(item), 10))
		}
	default:
		*pairs = append(*pairs, key+"="+url.QueryEscape(scalar(v)))
	}
}

func scalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
