// Package clicfg copies parsed command line flags into tagged struct fields.
package clicfg

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/urfave/cli/v3"
)

var ErrCannotParseFlags = errors.New("cannot parse flags")

var durationType = reflect.TypeFor[time.Duration]()

// ParseFlags fills every exported field of the struct dst points to that carries a
// `flag:"name"` tag with the value of the named flag of c.
func ParseFlags(c *cli.Command, dst any) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: expected pointer to struct, got %T", ErrCannotParseFlags, dst)
	}
	v = v.Elem()

	for i := range v.NumField() {
		field := v.Type().Field(i)

		name, ok := field.Tag.Lookup("flag")
		if !ok || name == "" || !field.IsExported() {
			continue
		}

		if err := assign(c, name, v.Field(i)); err != nil {
			return fmt.Errorf("%w: field %s: %w", ErrCannotParseFlags, field.Name, err)
		}
	}

	return nil
}

func assign(c *cli.Command, name string, field reflect.Value) error {
	switch {
	case field.Type() == durationType:
		field.SetInt(int64(c.Duration(name)))
	case field.Kind() == reflect.String:
		field.SetString(c.String(name))
	case field.Kind() == reflect.Bool:
		field.SetBool(c.Bool(name))
	case field.CanInt():
		field.SetInt(int64(c.Int(name)))
	case field.CanUint():
		field.SetUint(uint64(c.Uint(name)))
	case field.CanFloat():
		field.SetFloat(c.Float64(name))
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		field.Set(reflect.ValueOf(c.StringSlice(name)).Convert(field.Type()))
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}
