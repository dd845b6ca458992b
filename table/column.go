package table

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// CellRenderer renders the cell of a column for one item.
type CellRenderer[T any] interface {
	RenderCell(item T) string
}

// RenderFunc adapts a plain function to CellRenderer.
type RenderFunc[T any] func(item T) string

func (f RenderFunc[T]) RenderCell(item T) string {
	return f(item)
}

// Column describes one table column. A Renderer, when set, wins over Field.
type Column[T any] struct {
	Header string
	// Field names the struct field (Go name, json or db tag) or map key shown
	// in the cell.
	Field     string
	Renderer  CellRenderer[T]
	Class     string
	Sortable  bool
	SortField string
}

// Cell renders the column for item.
func (c Column[T]) Cell(item T) string {
	if c.Renderer != nil {
		return c.Renderer.RenderCell(item)
	}
	if c.Field == "" {
		return ""
	}
	return FieldString(item, c.Field)
}

// FieldString looks up name on a struct, a pointer to a struct or a map with
// string keys and formats the value. Missing fields render empty.
func FieldString(item any, name string) string {
	v := reflect.ValueOf(item)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		f, ok := structField(v, name)
		if !ok {
			return ""
		}
		return formatValue(f)
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return ""
		}
		f := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !f.IsValid() {
			return ""
		}
		return formatValue(f)
	default:
		return ""
	}
}

func structField(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if sf.Name == name || tagName(sf.Tag.Get("json")) == name || tagName(sf.Tag.Get("db")) == name {
			return v.Field(i), true
		}
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			if f, ok := structField(v.Field(i), name); ok {
				return f, true
			}
		}
	}
	return reflect.Value{}, false
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}

func formatValue(v reflect.Value) string {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if !v.CanInterface() {
		return ""
	}
	val := v.Interface()
	if valuer, ok := val.(driver.Valuer); ok {
		inner, err := valuer.Value()
		if err != nil || inner == nil {
			return ""
		}
		val = inner
	}
	switch x := val.(type) {
	case time.Time:
		return formatTime(x)
	case fmt.Stringer:
		return x.String()
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04")
}
