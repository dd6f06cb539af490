package esmerald

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// validateConstraints checks the constraint tags of a decoded request and
// returns an *HTTPValidationError listing every violation.
func validateConstraints(v any) error {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil
	}

	verr := &HTTPValidationError{}
	t := rv.Type()
	form := hasFormTags(t)

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Type == reflect.TypeFor[RawRequest]() {
			continue
		}
		fv := rv.Field(i)

		switch {
		case isParamField(f):
			checkFieldConstraints(f, fv, paramLoc(f), verr)
		case form:
			if name := f.Tag.Get("form"); name != "" {
				checkFieldConstraints(f, fv, []any{"body", name}, verr)
			}
		case f.Name == "Body":
			checkValue(f, fv, []any{"body"}, verr)
		default:
			name := jsonFieldName(f)
			if name == "-" {
				continue
			}
			checkValue(f, fv, []any{"body", name}, verr)
		}
	}

	if len(verr.Detail) > 0 {
		return verr
	}
	return nil
}

func paramLoc(f reflect.StructField) []any {
	for _, in := range flatParamOrder {
		if name, _ := tagOptions(f.Tag.Get(in)); name != "" {
			return []any{in, name}
		}
	}
	return []any{f.Name}
}

// checkValue checks a field and then the fields of the struct it holds.
func checkValue(f reflect.StructField, fv reflect.Value, loc []any, verr *HTTPValidationError) {
	checkFieldConstraints(f, fv, loc, verr)

	for fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return
		}
		fv = fv.Elem()
	}
	if fv.Kind() == reflect.Struct && fv.Type() != reflect.TypeFor[time.Time]() {
		collectConstraintErrors(fv, loc, verr)
	}
}

func collectConstraintErrors(rv reflect.Value, loc []any, verr *HTTPValidationError) {
	t := rv.Type()

	for i := range t.NumField() {
		f := t.Field(i)
		fv := rv.Field(i)

		if f.Anonymous && f.Tag.Get("json") == "" {
			inner := reflect.Indirect(fv)
			if inner.Kind() == reflect.Struct && inner.Type() != reflect.TypeFor[time.Time]() {
				collectConstraintErrors(inner, loc, verr)
				continue
			}
		}

		if !f.IsExported() {
			continue
		}
		name := jsonFieldName(f)
		if name == "-" {
			continue
		}

		checkValue(f, fv, append(slices.Clone(loc), name), verr)
	}
}

func checkFieldConstraints(f reflect.StructField, fv reflect.Value, loc []any, verr *HTTPValidationError) {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			if f.Tag.Get("required") == "true" {
				verr.add(nil, loc, "missing", "Field required")
			}
			return
		}
		fv = fv.Elem()
	}

	if fv.Kind() == reflect.String {
		val := fv.String()
		if n, ok := intTag(f, "minLength"); ok && len(val) < n {
			verr.add(nil, loc, "string_too_short", fmt.Sprintf("String should have at least %d characters", n))
		}
		if n, ok := intTag(f, "maxLength"); ok && len(val) > n {
			verr.add(nil, loc, "string_too_long", fmt.Sprintf("String should have at most %d characters", n))
		}
		// An empty optional string is an absent value.
		if val == "" && f.Tag.Get("required") != "true" {
			return
		}
		if tag := f.Tag.Get("pattern"); tag != "" {
			if matched, err := regexp.MatchString(tag, val); err == nil && !matched {
				verr.add(nil, loc, "string_pattern_mismatch", fmt.Sprintf("String should match pattern '%s'", tag))
			}
		}
		if tag := f.Tag.Get("enum"); tag != "" && !slices.Contains(strings.Split(tag, ","), val) {
			verr.add(nil, loc, "enum", fmt.Sprintf("Input should be one of [%s]", tag))
		}
	}

	if isNumericKind(fv.Kind()) {
		val := toFloat64(fv)
		if lower, ok := floatTag(f, "minimum"); ok && val < lower {
			verr.add(nil, loc, "greater_than_equal", "Input should be greater than or equal to "+formatBound(lower))
		}
		if upper, ok := floatTag(f, "maximum"); ok && val > upper {
			verr.add(nil, loc, "less_than_equal", "Input should be less than or equal to "+formatBound(upper))
		}
	}

	if fv.Kind() == reflect.Slice {
		length := fv.Len()
		if n, ok := intTag(f, "minItems"); ok && length < n {
			verr.add(nil, loc, "too_short", fmt.Sprintf("List should have at least %d items", n))
		}
		if n, ok := intTag(f, "maxItems"); ok && length > n {
			verr.add(nil, loc, "too_long", fmt.Sprintf("List should have at most %d items", n))
		}
	}
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isNumericKind(k reflect.Kind) bool {
	//exhaustive:ignore
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func toFloat64(v reflect.Value) float64 {
	//exhaustive:ignore
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default: // float32, float64
		return v.Float()
	}
}
