package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-bff-auth/internal/pkg/apperr"
	"github.com/go-bff-auth/internal/pkg/validate"
	"github.com/go-bff-auth/internal/transport/http/response"
	"github.com/go-bff-auth/internal/transport/http/upload"
	"github.com/go-chi/chi/v5"
)

const validatedKey contextKey = "validated"

// Schema names the struct types each part of a request decodes into. Params,
// Query and Body hold a zero value of the target struct; Files lists upload
// fields that must be present.
type Schema struct {
	Params any
	Query  any
	Body   any
	Files  []string
}

// Validate decodes and validates the request parts named by s. Every problem
// is reported in a single 400. Decoded values are read back with Valid.
func Validate(s Schema) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			values := map[reflect.Type]any{}
			var (
				problems []string
				tooLarge *http.MaxBytesError
			)

			check := func(proto any, decode func(ptr any) error) {
				if proto == nil {
					return
				}
				t := reflect.TypeOf(proto)
				ptr := reflect.New(t)
				if err := decode(ptr.Interface()); err != nil {
					if errors.As(err, &tooLarge) {
						return
					}
					problems = append(problems, err.Error())
					return
				}
				if err := validate.Struct(ptr.Interface()); err != nil {
					problems = append(problems, err.Error())
				}
				values[t] = ptr.Elem().Interface()
			}

			check(s.Params, func(ptr any) error { return fill(ptr, "param", routeParams(r)) })
			check(s.Query, func(ptr any) error { return fill(ptr, "query", r.URL.Query()) })
			check(s.Body, func(ptr any) error { return decodeBody(r, ptr) })
			for _, field := range s.Files {
				if upload.File(r.Context(), field) == nil {
					problems = append(problems, fmt.Sprintf("%q is required", field))
				}
			}

			if tooLarge != nil {
				response.Error(w, r, tooLarge)
				return
			}
			if len(problems) > 0 {
				response.Error(w, r, apperr.BadRequest(strings.Join(problems, "; ")))
				return
			}
			ctx := context.WithValue(r.Context(), validatedKey, values)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Valid returns the value Validate decoded into type T.
func Valid[T any](ctx context.Context) (T, bool) {
	var zero T
	values, _ := ctx.Value(validatedKey).(map[reflect.Type]any)
	v, ok := values[reflect.TypeOf(zero)].(T)
	return v, ok
}

func routeParams(r *http.Request) map[string][]string {
	out := map[string][]string{}
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return out
	}
	for i, k := range rctx.URLParams.Keys {
		out[k] = append(out[k], rctx.URLParams.Values[i])
	}
	return out
}

func decodeBody(r *http.Request, ptr any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" || mediaType == "application/x-www-form-urlencoded" {
		if r.MultipartForm == nil && r.PostForm == nil {
			if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
				var mbe *http.MaxBytesError
				if errors.As(err, &mbe) {
					return err
				}
				return errors.New("invalid form body")
			}
		}
		form := r.PostForm
		if r.MultipartForm != nil {
			form = r.MultipartForm.Value
		}
		return fill(ptr, "form", form)
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(ptr)
	var mbe *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &mbe):
		return err
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return fmt.Errorf("%s is not allowed", strings.TrimPrefix(err.Error(), "json: unknown field "))
	default:
		var ute *json.UnmarshalTypeError
		if errors.As(err, &ute) && ute.Field != "" {
			return fmt.Errorf("%q must be a %s", ute.Field, ute.Type.Kind())
		}
		return errors.New("invalid JSON body")
	}
}

// fill sets the struct fields of ptr from src using the tag as key. Only
// string, bool, integer fields and pointers to them are supported; a key
// absent from src leaves the field at its zero value.
func fill(ptr any, tag string, src map[string][]string) error {
	rv := reflect.ValueOf(ptr).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get(tag), ",")
		if name == "" || name == "-" {
			continue
		}
		vals, ok := src[name]
		if !ok || len(vals) == 0 {
			continue
		}
		fv := rv.Field(i)
		if fv.Kind() == reflect.Pointer {
			p := reflect.New(fv.Type().Elem())
			if err := setScalar(p.Elem(), vals[0]); err != nil {
				return fmt.Errorf("%q %w", name, err)
			}
			fv.Set(p)
			continue
		}
		if err := setScalar(fv, vals[0]); err != nil {
			return fmt.Errorf("%q %w", name, err)
		}
	}
	return nil
}

func setScalar(v reflect.Value, s string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return errors.New("must be a boolean")
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return errors.New("must be a number")
		}
		v.SetInt(n)
	default:
		return fmt.Errorf("has unsupported type %s", v.Type())
	}
	return nil
}
