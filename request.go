package esmerald

import (
	"encoding"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"time"
)

// maxMultipartMemory is the maximum memory used for multipart form parsing (32 MB).
const maxMultipartMemory = 32 << 20

var bindSentinels = map[string]error{
	"path":   ErrBindPath,
	"query":  ErrBindQuery,
	"header": ErrBindHeader,
	"cookie": ErrBindCookie,
}

// requestPlan is how a request type is populated, worked out once per
// gateway from the same field rules the OpenAPI builder documents.
type requestPlan struct {
	params []paramField
	data   *dataField

	// body is the index of the Body field, or -1 when the data field is
	// the whole request value.
	body int
	raw  int
}

func newRequestPlan(t reflect.Type) *requestPlan {
	p := &requestPlan{
		params: flatParams(t),
		data:   requestDataField(t),
		body:   -1,
		raw:    -1,
	}
	if st, ok := structType(t); ok {
		for i := range st.NumField() {
			f := st.Field(i)
			switch {
			case f.Type == reflect.TypeFor[RawRequest]():
				p.raw = i
			case f.Name == "Body" && f.IsExported() && !hasFormTags(st):
				p.body = i
			}
		}
	}
	return p
}

// decodeRequest creates a new Req value and populates it from the HTTP
// request. Binding failures are collected into one *HTTPValidationError.
func decodeRequest[Req any](r *http.Request, plan *requestPlan, codecs *codecRegistry) (*Req, error) {
	req := new(Req)
	v := reflect.ValueOf(req).Elem()
	verr := &HTTPValidationError{}

	if v.Kind() == reflect.Struct {
		for _, p := range plan.params {
			bindParam(v.FieldByIndex(p.field.Index), r, p, verr)
		}
		if plan.raw >= 0 {
			v.Field(plan.raw).Set(reflect.ValueOf(RawRequest{Request: r}))
		}
	}

	if plan.data != nil {
		var err error
		switch {
		case plan.data.form:
			bindForm(v, r, verr)
		case plan.body >= 0:
			err = bindBody(v.Field(plan.body), r, plan.data, codecs, verr)
		default:
			err = bindBody(v, r, plan.data, codecs, verr)
		}
		if err != nil {
			return nil, err
		}
	}

	if len(verr.Detail) > 0 {
		return nil, verr
	}
	return req, nil
}

// bindParam reads one parameter into its field.
func bindParam(field reflect.Value, r *http.Request, p paramField, verr *HTTPValidationError) {
	loc := []any{p.in, p.name}
	sentinel := bindSentinels[p.in]

	vals := paramValues(r, p.in, p.name)
	if len(vals) == 0 {
		if def := p.field.Tag.Get("default"); def != "" {
			vals = []string{def}
		}
	}
	if len(vals) == 0 {
		if p.required {
			verr.add(fmt.Errorf("%w: %s: missing", sentinel, p.name), loc, "missing", "Field required")
		}
		return
	}

	if err := setFieldValues(field, vals); err != nil {
		verr.add(fmt.Errorf("%w: %s: %w", sentinel, p.name, err), loc, "type_error",
			fmt.Sprintf("Input should be a valid %s", typeLabel(field.Type())))
	}
}

func paramValues(r *http.Request, in, name string) []string {
	switch in {
	case "path":
		if v := r.PathValue(name); v != "" {
			return []string{v}
		}
	case "query":
		return r.URL.Query()[name]
	case "header":
		return r.Header.Values(name)
	case "cookie":
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return []string{c.Value}
		}
	}
	return nil
}

// bindBody decodes the request body into target. Returned errors are not
// validation failures and end the request as they are.
func bindBody(target reflect.Value, r *http.Request, data *dataField, codecs *codecRegistry, verr *HTTPValidationError) error {
	loc := []any{"body"}

	if r.Body == nil || r.ContentLength == 0 {
		if data.required {
			verr.add(fmt.Errorf("%w: missing", ErrBindBody), loc, "missing", "Field required")
		}
		return nil
	}

	dec, ok := codecs.decoderFor(r.Header.Get("Content-Type"))
	if !ok {
		return Errorf(http.StatusUnsupportedMediaType, "unsupported content type %q", r.Header.Get("Content-Type"))
	}

	var dst reflect.Value
	if target.Kind() == reflect.Pointer {
		dst = reflect.New(target.Type().Elem())
	} else {
		dst = target.Addr()
	}

	err := dec.Decode(r.Body, dst.Interface())
	switch {
	case err == nil:
		if target.Kind() == reflect.Pointer {
			target.Set(dst)
		}
	case isEmptyBody(err):
		if data.required {
			verr.add(fmt.Errorf("%w: missing", ErrBindBody), loc, "missing", "Field required")
		}
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return Errorf(http.StatusRequestEntityTooLarge, "request body exceeds %d bytes", tooLarge.Limit)
		}
		verr.add(fmt.Errorf("%w: %w", ErrBindBody, err), loc, "body_invalid", err.Error())
	}
	return nil
}

// bindForm binds urlencoded or multipart form fields and files to struct
// fields tagged with "form".
func bindForm(v reflect.Value, r *http.Request, verr *HTTPValidationError) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	if mt == multipartMediaType {
		err = r.ParseMultipartForm(maxMultipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		verr.add(fmt.Errorf("%w: %w", ErrBindForm, err), []any{"body"}, "form_invalid", err.Error())
		return
	}

	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("form")
		if name == "" {
			continue
		}

		loc := []any{"body", name}
		field := v.Field(i)
		required := f.Tag.Get("required") == "true"

		switch f.Type {
		case reflect.TypeFor[FileUpload]():
			uploads, err := formFiles(r, name)
			if err != nil {
				verr.add(fmt.Errorf("%w: %s: %w", ErrBindForm, name, err), loc, "file_invalid", err.Error())
				continue
			}
			if len(uploads) == 0 {
				if required {
					verr.add(fmt.Errorf("%w: %s: missing", ErrBindForm, name), loc, "missing", "Field required")
				}
				continue
			}
			field.Set(reflect.ValueOf(uploads[0]))
			continue

		case reflect.TypeFor[[]FileUpload]():
			uploads, err := formFiles(r, name)
			if err != nil {
				verr.add(fmt.Errorf("%w: %s: %w", ErrBindForm, name, err), loc, "file_invalid", err.Error())
				continue
			}
			if len(uploads) == 0 && required {
				verr.add(fmt.Errorf("%w: %s: missing", ErrBindForm, name), loc, "missing", "Field required")
				continue
			}
			if len(uploads) > 0 {
				field.Set(reflect.ValueOf(uploads))
			}
			continue
		}

		vals := r.Form[name]
		if len(vals) == 0 {
			if def := f.Tag.Get("default"); def != "" {
				vals = []string{def}
			}
		}
		if len(vals) == 0 {
			if required {
				verr.add(fmt.Errorf("%w: %s: missing", ErrBindForm, name), loc, "missing", "Field required")
			}
			continue
		}
		if err := setFieldValues(field, vals); err != nil {
			verr.add(fmt.Errorf("%w: %s: %w", ErrBindForm, name, err), loc, "type_error",
				fmt.Sprintf("Input should be a valid %s", typeLabel(field.Type())))
		}
	}
}

func formFiles(r *http.Request, name string) ([]FileUpload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[name]
	uploads := make([]FileUpload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, FileUpload{
			Filename: header.Filename,
			Size:     header.Size,
			Header:   header,
			file:     file,
		})
	}
	return uploads, nil
}

// setFieldValues sets a field from one or more raw values. Slices take
// every value; anything else takes the first.
func setFieldValues(field reflect.Value, vals []string) error {
	if field.Kind() == reflect.Slice && field.Type().Elem().Kind() != reflect.Uint8 {
		s := reflect.MakeSlice(field.Type(), len(vals), len(vals))
		for i, val := range vals {
			if err := setFieldValue(s.Index(i), val); err != nil {
				return err
			}
		}
		field.Set(s)
		return nil
	}
	return setFieldValue(field, vals[0])
}

// setFieldValue sets a reflect.Value from a string, supporting common types.
func setFieldValue(field reflect.Value, value string) error {
	if field.Kind() == reflect.Pointer {
		ptr := reflect.New(field.Type().Elem())
		if err := setFieldValue(ptr.Elem(), value); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}

	if field.Type() == reflect.TypeFor[time.Duration]() {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	if field.CanAddr() {
		if tu, ok := field.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return tu.UnmarshalText([]byte(value))
		}
	}

	//exhaustive:ignore
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}

// typeLabel names a type for validation messages.
func typeLabel(t reflect.Type) string {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	//exhaustive:ignore
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	default:
		return t.String()
	}
}
