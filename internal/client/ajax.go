package client

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Request is one HTTP call. Exactly one of Success and Error is called once
// the call completes.
type Request struct {
	URL         string
	Method      string
	Data        any
	ContentType string
	FileUpload  bool
	Header      http.Header

	Success func(body json.RawMessage)
	Error   func(status string, err error)
}

// Adapter performs requests without blocking the caller.
type Adapter interface {
	Do(req Request)
}

// HTTPAdapter sends requests to a vrt server. Calls are not retried.
type HTTPAdapter struct {
	BaseURL string
	// Client sends the requests. The zero value has no timeout: a call
	// completes whenever the network resolves it.
	Client  *http.Client
}

// NewHTTPAdapter returns an adapter for the server at baseURL.
func NewHTTPAdapter(baseURL string) *HTTPAdapter {
	return &HTTPAdapter{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{},
	}
}

// Do starts the call on its own goroutine and returns immediately.
func (a *HTTPAdapter) Do(req Request) {
	go a.do(req)
}

// statusTransport is reported when no HTTP status was received.
const statusTransport = "error"

func (a *HTTPAdapter) do(req Request) {
	body, contentType, err := encodeBody(req)
	if err != nil {
		req.Error(statusTransport, err)
		return
	}

	httpReq, err := http.NewRequest(req.Method, a.BaseURL+req.URL, body)
	if err != nil {
		req.Error(statusTransport, err)
		return
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		req.Error(statusTransport, err)
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		req.Error(resp.Status, fmt.Errorf("reading response: %w", err))
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		req.Error(resp.Status, serverError(resp, data))
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("null")
	}
	req.Success(json.RawMessage(data))
}

func encodeBody(req Request) (io.Reader, string, error) {
	if req.Data == nil {
		return nil, "", nil
	}
	if req.FileUpload {
		data, ok := req.Data.([]byte)
		if !ok {
			return nil, "", fmt.Errorf("file upload body must be []byte, got %T", req.Data)
		}
		return bytes.NewReader(data), req.ContentType, nil
	}

	data, err := json.Marshal(FormatDates(req.Data))
	if err != nil {
		return nil, "", fmt.Errorf("encoding request: %w", err)
	}
	ct := req.ContentType
	if ct == "" {
		ct = "application/json"
	}
	return bytes.NewReader(data), ct, nil
}

// serverError extracts the message of a {"error": "..."} body.
func serverError(resp *http.Response, data []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return errors.New(body.Error)
	}
	if msg := strings.TrimSpace(string(data)); msg != "" && len(msg) < 200 {
		return errors.New(msg)
	}
	return errors.New(http.StatusText(resp.StatusCode))
}

// dateLike matches time.Time and anything embedding it.
type dateLike interface {
	Date() (year int, month time.Month, day int)
}

type zeroer interface {
	IsZero() bool
}

var jsonMarshalerType = reflect.TypeFor[json.Marshaler]()

// FormatDates returns a copy of v in which every date-like value, at any
// depth, is replaced by its "MM/DD/YYYY" string. Zero dates become nil.
// Maps, slices and pointers are followed and structs are turned into maps
// keyed by their JSON field names. Everything else is returned unchanged.
func FormatDates(v any) any {
	if v == nil {
		return nil
	}
	return formatValue(reflect.ValueOf(v))
}

func formatValue(rv reflect.Value) any {
	if !rv.IsValid() {
		return nil
	}

	if k := rv.Kind(); k == reflect.Pointer || k == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		return formatValue(rv.Elem())
	}

	if rv.CanInterface() {
		if d, ok := rv.Interface().(dateLike); ok {
			if z, ok := d.(zeroer); ok && z.IsZero() {
				return nil
			}
			y, m, day := d.Date()
			return fmt.Sprintf("%02d/%02d/%04d", int(m), day, y)
		}
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[mapKey(iter.Key())] = formatValue(iter.Value())
		}
		return out

	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Interface()
		}
		return formatList(rv)

	case reflect.Array:
		return formatList(rv)

	case reflect.Struct:
		if rv.Type().Implements(jsonMarshalerType) {
			return rv.Interface()
		}
		out := make(map[string]any)
		formatStruct(rv, out)
		return out
	}

	return rv.Interface()
}

// mapKey names a map key the way encoding/json does.
func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	if k.CanInterface() {
		if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
			if k.Kind() == reflect.Pointer && k.IsNil() {
				return ""
			}
			if b, err := tm.MarshalText(); err == nil {
				return string(b)
			}
		}
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	}
	return fmt.Sprint(k.Interface())
}

func formatList(rv reflect.Value) []any {
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = formatValue(rv.Index(i))
	}
	return out
}

// formatStruct copies the exported fields of rv into out, following the
// encoding/json naming rules for tags, omitempty, omitzero and embedding.
func formatStruct(rv reflect.Value, out map[string]any) {
	rt := rv.Type()
	for i := range rt.NumField() {
		f := rt.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := rv.Field(i)

		if f.Anonymous && name == "" {
			if !fv.CanInterface() {
				continue
			}
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv, ft = fv.Elem(), ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if _, ok := fv.Interface().(dateLike); !ok {
					formatStruct(fv, out)
					continue
				}
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if hasOpt(opts, "omitempty") && isEmpty(fv) {
			continue
		}
		if hasOpt(opts, "omitzero") && isZero(fv) {
			continue
		}
		out[name] = formatValue(fv)
	}
}

func hasOpt(opts, want string) bool {
	for opt := range strings.SplitSeq(opts, ",") {
		if opt == want {
			return true
		}
	}
	return false
}

// isEmpty follows the encoding/json definition used by omitempty.
func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}

func isZero(v reflect.Value) bool {
	if v.CanInterface() {
		if z, ok := v.Interface().(zeroer); ok {
			if v.Kind() == reflect.Pointer && v.IsNil() {
				return true
			}
			return z.IsZero()
		}
	}
	return v.IsZero()
}
