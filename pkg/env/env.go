package env

import (
	"encoding"
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	TagValue     = "env"
	TagDefault   = "env-default"
	TagSeparator = "env-separator"

	defaultSeparator = ","
)

var ErrNotStruct = errors.New("env: target is not a struct")

type parseFunc func(*reflect.Value, string) error

var parsers = map[reflect.Type]parseFunc{
	reflect.TypeOf(url.URL{}): func(fieldValue *reflect.Value, env string) error {
		URL, err := url.Parse(env)
		if err != nil {
			return err
		}

		fieldValue.Set(reflect.ValueOf(*URL))
		return nil
	},

	reflect.TypeOf(time.Location{}): func(fieldValue *reflect.Value, env string) error {
		location, err := time.LoadLocation(env)
		if err != nil {
			return err
		}

		fieldValue.Set(reflect.ValueOf(*location))
		return nil
	},
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(name string) (string, bool)

type Option func(*Reader)

// WithLookup replaces os.LookupEnv as the variable source.
func WithLookup(lookup LookupFunc) Option {
	return func(r *Reader) {
		r.lookup = lookup
	}
}

// WithValidator runs v.Struct on the target after every variable is read.
func WithValidator(v *validator.Validate) Option {
	return func(r *Reader) {
		r.validate = v
	}
}

// Reader fills tagged struct fields from environment variables.
type Reader struct {
	lookup   LookupFunc
	validate *validator.Validate
}

func New(opts ...Option) *Reader {
	r := &Reader{lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read fills root from the process environment and validates it with the
// default validator.
func Read(root interface{}) error {
	return New(WithValidator(validator.New(validator.WithRequiredStructEnabled()))).Read(root)
}

func (r *Reader) Read(root interface{}) error {
	if err := r.read(root); err != nil {
		return err
	}

	if r.validate == nil {
		return nil
	}
	if err := r.validate.Struct(root); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (r *Reader) read(root interface{}) error {
	rootValue := reflect.ValueOf(root)

	if rootValue.Kind() == reflect.Ptr {
		rootValue = rootValue.Elem()
	}

	if rootValue.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %v", ErrNotStruct, rootValue.Kind())
	}

	var errs []error
	rootType := rootValue.Type()
	for i := 0; i < rootValue.NumField(); i++ {
		fieldType := rootType.Field(i)
		fieldValue := rootValue.Field(i)

		if fieldValue.Kind() == reflect.Ptr && fieldType.Type.Elem().Kind() == reflect.Struct {
			if !fieldValue.CanSet() {
				continue
			}
			if fieldValue.IsNil() {
				fieldValue.Set(reflect.New(fieldType.Type.Elem()))
			}

			fieldValue = fieldValue.Elem()
		}

		if fieldValue.Kind() == reflect.Struct {
			if _, ok := parsers[fieldValue.Type()]; !ok {
				if !fieldValue.CanAddr() || !fieldValue.Addr().CanInterface() {
					continue
				}

				if err := r.read(fieldValue.Addr().Interface()); err != nil {
					errs = append(errs, err)
				}
				continue
			}
		}

		if !fieldValue.CanSet() {
			continue
		}

		tagValue, hasTagValue := fieldType.Tag.Lookup(TagValue)
		if !hasTagValue {
			continue
		}

		name, options := parseTag(tagValue)
		isRequired := options.Contains("required")
		defValue, hasDefValue := fieldType.Tag.Lookup(TagDefault)

		env, found := r.lookup(name)
		if isRequired && !found {
			errs = append(errs, fmt.Errorf("environment variable %s is required but the value is not provided", name))
			continue
		}

		if !found {
			if !hasDefValue {
				continue
			}
			env = defValue
		}

		sep := fieldType.Tag.Get(TagSeparator)
		if sep == "" {
			sep = defaultSeparator
		}

		if err := parseValue(fieldValue, name, env, sep); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func parseValue(fieldValue reflect.Value, name, env, sep string) error {
	fieldType := fieldValue.Type()

	if parser, ok := parsers[fieldType]; ok {
		if err := parser(&fieldValue, env); err != nil {
			return fmt.Errorf("can't parse environment variable %v, err: %w", name, err)
		}
		return nil
	}

	if fieldValue.CanAddr() {
		if u, ok := fieldValue.Addr().Interface().(encoding.TextUnmarshaler); ok {
			if err := u.UnmarshalText([]byte(env)); err != nil {
				return fmt.Errorf("can't parse environment variable %v, err: %w", name, err)
			}
			return nil
		}
	}

	switch fieldValue.Kind() {
	case reflect.String:
		fieldValue.SetString(env)

	case reflect.Bool:
		b, err := strconv.ParseBool(env)
		if err != nil {
			return fmt.Errorf("can't parse environment variable %v, err: %w", name, err)
		}
		fieldValue.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if fieldType == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(env)
			if err != nil {
				return fmt.Errorf("can't parse environment variable %v, err: %w", name, err)
			}
			fieldValue.SetInt(int64(d))
			return nil
		}

		number, err := strconv.ParseInt(env, 0, fieldType.Bits())
		if err != nil {
			return fmt.Errorf("can't parse environment variable %v, err: %w", name, err)
		}
		fieldValue.SetInt(number)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		number, err := strconv.ParseUint(env, 0, fieldType.Bits())
		if err != nil {
			return fmt.Errorf("can't parse environment variable %v, err: %w", name, err)
		}
		fieldValue.SetUint(number)

	case reflect.Float32, reflect.Float64:
		number, err := strconv.ParseFloat(env, fieldType.Bits())
		if err != nil {
			return fmt.Errorf("can't parse environment variable %v, err: %w", name, err)
		}
		fieldValue.SetFloat(number)

	case reflect.Slice:
		sliceValue, err := parseSlice(fieldType, name, env, sep)
		if err != nil {
			return err
		}
		fieldValue.Set(sliceValue)

	case reflect.Map:
		mapValue, err := parseMap(fieldType, name, env, sep)
		if err != nil {
			return err
		}
		fieldValue.Set(mapValue)

	case reflect.Ptr:
		if fieldValue.IsNil() {
			fieldValue.Set(reflect.New(fieldType.Elem()))
		}

		return parseValue(fieldValue.Elem(), name, env, sep)

	default:
		return fmt.Errorf("environment variable %v has unsupported type %s", name, fieldValue.Kind())
	}

	return nil
}

func parseSlice(valueType reflect.Type, name, env, sep string) (reflect.Value, error) {
	if len(strings.TrimSpace(env)) == 0 {
		return reflect.MakeSlice(valueType, 0, 0), nil
	}

	items := strings.Split(env, sep)
	sliceValue := reflect.MakeSlice(valueType, len(items), len(items))
	for i, item := range items {
		if err := parseValue(sliceValue.Index(i), name, strings.TrimSpace(item), sep); err != nil {
			return reflect.Value{}, err
		}
	}
	return sliceValue, nil
}

func parseMap(valueType reflect.Type, name, env, sep string) (reflect.Value, error) {
	mapValue := reflect.MakeMap(valueType)
	if len(strings.TrimSpace(env)) == 0 {
		return mapValue, nil
	}

	for _, pair := range strings.Split(env, sep) {
		elem := strings.SplitN(pair, ":", 2)
		if len(elem) != 2 {
			return reflect.Value{}, fmt.Errorf("can't parse environment variable %v, err: invalid map item %q", name, pair)
		}

		key := reflect.New(valueType.Key()).Elem()
		if err := parseValue(key, name, elem[0], sep); err != nil {
			return reflect.Value{}, err
		}

		value := reflect.New(valueType.Elem()).Elem()
		if err := parseValue(value, name, elem[1], sep); err != nil {
			return reflect.Value{}, err
		}

		mapValue.SetMapIndex(key, value)
	}

	return mapValue, nil
}

type tagOptions string

func parseTag(tag string) (string, tagOptions) {
	tag, opt, _ := strings.Cut(tag, ",")
	return tag, tagOptions(opt)
}

func (o tagOptions) Contains(optionName string) bool {
	s := string(o)
	for s != "" {
		var name string
		name, s, _ = strings.Cut(s, ",")
		if name == optionName {
			return true
		}
	}
	return false
}
