package esmerald

import (
	"reflect"
)

const (
	jsonMediaType      = "application/json"
	problemMediaType   = "application/problem+json"
	multipartMediaType = "multipart/form-data"
	urlencodedType     = "application/x-www-form-urlencoded"
)

// flatParamOrder is the order parameters are listed in an operation.
var flatParamOrder = []string{"path", "query", "cookie", "header"}

// paramField describes one path, query, cookie or header parameter of a
// request type.
type paramField struct {
	name        string
	in          string
	required    bool
	description string
	example     string
	deprecated  bool
	hidden      bool
	field       reflect.StructField
}

// flatParams lists the parameters of a request type: path first, then
// query, cookie and header, each in field order.
func flatParams(t reflect.Type) []paramField {
	t, ok := structType(t)
	if !ok {
		return nil
	}

	var params []paramField
	for _, in := range flatParamOrder {
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() || f.Name == "Body" {
				continue
			}
			name, _ := tagOptions(f.Tag.Get(in))
			if name == "" {
				continue
			}
			params = append(params, paramField{
				name:        name,
				in:          in,
				required:    in == "path" || f.Tag.Get("required") == "true",
				description: f.Tag.Get("doc"),
				example:     f.Tag.Get("example"),
				deprecated:  f.Tag.Get("deprecated") == "true",
				hidden:      f.Tag.Get("openapi") == "-",
				field:       f,
			})
		}
	}
	return params
}

// dataField describes the request body of a request type.
type dataField struct {
	typ       reflect.Type
	mediaType string
	required  bool
	example   string
	form      bool
}

// requestDataField returns the body of a request type, or nil when the
// type carries no body. The body is the Body field when present, the
// whole struct when it has form tags, or the whole struct when it has
// neither parameter tags nor an embedded RawRequest.
func requestDataField(t reflect.Type) *dataField {
	if t == nil || t == reflect.TypeFor[Void]() {
		return nil
	}

	st, ok := structType(t)
	if !ok {
		return &dataField{typ: t, mediaType: jsonMediaType, required: true}
	}

	if hasFormTags(st) {
		mt := urlencodedType
		if hasFileFields(st) {
			mt = multipartMediaType
		}
		return &dataField{typ: st, mediaType: mt, required: true, form: true}
	}

	if hasBodyField(st) {
		f, _ := st.FieldByName("Body")
		mt := f.Tag.Get("media")
		if mt == "" {
			mt = jsonMediaType
		}
		return &dataField{
			typ:       f.Type,
			mediaType: mt,
			required:  f.Type.Kind() != reflect.Pointer && f.Tag.Get("required") != "false",
			example:   f.Tag.Get("example"),
		}
	}

	if !hasParamTags(st) && !hasRawRequest(st) && hasExportedFields(st) {
		return &dataField{typ: st, mediaType: jsonMediaType, required: true}
	}

	return nil
}
