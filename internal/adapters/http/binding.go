package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/oapi-codegen/runtime/types"

	"bloodlink/internal/domain"
)

const maxBodyBytes = 1 << 20

// isForm reports whether the client submitted an HTML form. Form clients
// get redirects instead of JSON bodies.
func isForm(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data"
}

// decode reads a JSON body, or a form converted to the same JSON shape, into dst.
func decode(r *http.Request, dst any) error {
	var raw []byte
	if isForm(r) {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return domain.Validationf("invalid form body")
		}
		b, err := json.Marshal(formToMap(r.PostForm))
		if err != nil {
			return err
		}
		raw = b
	} else {
		b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return domain.Validationf("could not read request body")
		}
		raw = b
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return err
		}
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			return domain.Validationf("invalid value for %s", te.Field)
		}
		return domain.Validationf("malformed request body")
	}
	return nil
}

var formKeyPart = regexp.MustCompile(`[^.\[\]]+`)

// formToMap nests "address.city" and "address[city]" keys and keeps
// repeated keys as lists.
func formToMap(values url.Values) map[string]any {
	out := map[string]any{}
	for key, vals := range values {
		parts := formKeyPart.FindAllString(key, -1)
		if len(parts) == 0 {
			continue
		}
		var v any = vals[0]
		if len(vals) > 1 {
			v = vals
		}
		node := out
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = v
	}
	return out
}

// flexInt accepts a JSON number or a numeric string; "" is zero.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return domain.Validationf("invalid number %q", s)
	}
	*n = flexInt(v)
	return nil
}

// flexBool accepts a JSON bool or a checkbox style string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	switch strings.ToLower(strings.Trim(string(b), `"`)) {
	case "true", "on", "1", "yes":
		*f = true
	case "false", "off", "0", "no", "", "null":
		*f = false
	default:
		return domain.Validationf("invalid boolean %s", b)
	}
	return nil
}

func (f *flexBool) ptr() *bool {
	if f == nil {
		return nil
	}
	v := bool(*f)
	return &v
}

// flexDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
type flexDate struct {
	time.Time
}

func (d *flexDate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	var day types.Date
	if err := day.UnmarshalJSON([]byte(strconv.Quote(s))); err == nil {
		d.Time = day.Time
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return domain.Validationf("invalid date %q: use %s", s, types.DateFormat)
	}
	d.Time = t
	return nil
}

func (d *flexDate) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// flexList accepts a JSON array or a comma-separated string.
type flexList []string

func (l *flexList) UnmarshalJSON(b []byte) error {
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*l = clean(arr)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return domain.Validationf("invalid list")
	}
	*l = clean(strings.Split(s, ","))
	return nil
}

func clean(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

// addressFields accepts an address either nested or as flat fields.
type addressFields struct {
	Address *domain.Address `json:"address"`
	Street  string          `json:"street"`
	City    string          `json:"city"`
	State   string          `json:"state"`
	Pincode string          `json:"pincode"`
}

func (a addressFields) address() domain.Address {
	var out domain.Address
	if a.Address != nil {
		out = *a.Address
	}
	if a.Street != "" {
		out.Street = a.Street
	}
	if a.City != "" {
		out.City = a.City
	}
	if a.State != "" {
		out.State = a.State
	}
	if a.Pincode != "" {
		out.Pincode = a.Pincode
	}
	return out
}

func (a addressFields) supplied() bool {
	return a.Address != nil || a.Street != "" || a.City != "" || a.State != "" || a.Pincode != ""
}

// pathID binds a required path parameter.
func pathID(r *http.Request, name string) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil || strings.TrimSpace(id) == "" {
		return "", domain.Validationf("invalid %s parameter", name)
	}
	return id, nil
}

// queryString binds an optional query parameter.
func queryString(r *http.Request, name string) (string, error) {
	var v string
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return "", domain.Validationf("invalid %s parameter", name)
	}
	return v, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	var v *bool
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return false, domain.Validationf("invalid %s parameter", name)
	}
	return v != nil && *v, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	var v *int
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return 0, domain.Validationf("invalid %s parameter", name)
	}
	if v == nil {
		return 0, nil
	}
	return *v, nil
}
