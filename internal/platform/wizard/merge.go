package wizard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"
)

// MergeJSON applies a partial JSON object to the struct dst points to. Only the
// keys present in patch change; each is decoded into a fresh value of the
// field's type, so nested objects and arrays are replaced, never deep-merged.
// Unknown keys and keys listed in locked are rejected and nothing is written.
func MergeJSON(dst any, patch []byte, locked ...string) ([]string, error) {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("merge target must be a pointer to a struct, got %T", dst)
	}
	target := rv.Elem()

	trimmed := bytes.TrimSpace(patch)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &Error{Code: http.StatusBadRequest, Msg: "patch must be a JSON object"}
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &Error{Code: http.StatusBadRequest, Msg: "invalid patch: " + err.Error()}
	}

	fields := jsonFields(target.Type())
	deny := make(map[string]bool, len(locked))
	for _, l := range locked {
		deny[l] = true
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	decoded := make([]reflect.Value, len(keys))
	for i, k := range keys {
		idx, ok := fields[k]
		if !ok {
			return nil, &Error{Code: http.StatusBadRequest, Msg: fmt.Sprintf("unknown field %q", k)}
		}
		if deny[k] {
			return nil, &Error{Code: http.StatusBadRequest, Msg: fmt.Sprintf("field %q is edited through its own endpoint", k)}
		}
		fv := reflect.New(target.Field(idx).Type())
		if err := json.Unmarshal(raw[k], fv.Interface()); err != nil {
			return nil, &Error{Code: http.StatusBadRequest, Msg: fmt.Sprintf("field %q: %v", k, err)}
		}
		decoded[i] = fv.Elem()
	}

	for i, k := range keys {
		target.Field(fields[k]).Set(decoded[i])
	}
	return keys, nil
}

func jsonFields(t reflect.Type) map[string]int {
	out := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			n, _, _ := strings.Cut(tag, ",")
			if n == "-" {
				continue
			}
			if n != "" {
				name = n
			}
		}
		out[name] = i
	}
	return out
}
