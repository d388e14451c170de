package gostatement

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
)

// RowFormat selects the shape of rows delivered by ForEachRow.
type RowFormat int

const (
	// RowFormatObject decodes each row into a map keyed by column name,
	// converting cells according to the column types.
	RowFormatObject RowFormat = iota
	// RowFormatArray passes the raw cell arrays through unchanged.
	RowFormatArray
)

// decodeHooks re-encode values after conversion.
type decodeHooks struct {
	encodeBigInt    func(*big.Int) any
	encodeTimestamp func(string) any
}

type columnDecoder struct {
	name string
	typ  *typeDescriptor
}

// rowDecoder converts raw rows. It is built once per fetch and holds no
// mutable state, so decoding a row twice yields the same value.
type rowDecoder struct {
	statementID string
	raw         bool
	columns     []columnDecoder
	hooks       decodeHooks
}

func buildRowDecoder(statementID string, schema *ResultSchema, format RowFormat, hooks decodeHooks) *rowDecoder {
	d := &rowDecoder{statementID: statementID, raw: format == RowFormatArray, hooks: hooks}
	if d.raw {
		return d
	}
	if schema == nil {
		logger.Warnf("statement %v: result has no schema. rows are passed through as arrays", statementID)
		d.raw = true
		return d
	}
	d.columns = make([]columnDecoder, len(schema.Columns))
	for i, column := range schema.Columns {
		td, err := columnType(column)
		if err != nil {
			logger.Warnf("column %v: %v. values are passed through", column.Name, err)
			td = &typeDescriptor{kind: leafKind, name: strings.ToUpper(column.TypeName)}
		}
		d.columns[i] = columnDecoder{name: column.Name, typ: td}
	}
	return d
}

func (d *rowDecoder) decode(row []any) (any, error) {
	if d.raw {
		return row, nil
	}
	out := make(map[string]any, len(d.columns))
	for i, column := range d.columns {
		var cell any
		if i < len(row) {
			cell = row[i]
		}
		v, err := d.convert(column.typ, cell)
		if err != nil {
			return nil, err
		}
		out[column.name] = v
	}
	return out, nil
}

func (d *rowDecoder) convert(td *typeDescriptor, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch td.kind {
	case structKind:
		parsed, err := d.parseNested(td, v)
		if err != nil {
			return nil, err
		}
		obj, ok := parsed.(map[string]any)
		if !ok {
			return v, nil
		}
		out := make(map[string]any, len(td.fields))
		for _, f := range td.fields {
			fv, present := obj[f.name]
			if !present {
				continue
			}
			if out[f.name], err = d.convert(f.typ, fv); err != nil {
				return nil, err
			}
		}
		return out, nil
	case arrayKind:
		parsed, err := d.parseNested(td, v)
		if err != nil {
			return nil, err
		}
		list, ok := parsed.([]any)
		if !ok {
			return v, nil
		}
		out := make([]any, len(list))
		for i, elem := range list {
			if out[i], err = d.convert(td.elem, elem); err != nil {
				return nil, err
			}
		}
		return out, nil
	case mapKind:
		parsed, err := d.parseNested(td, v)
		if err != nil {
			return nil, err
		}
		return d.convertMap(td, v, parsed)
	case decimalKind:
		return convertDecimal(td, v), nil
	}
	return d.convertLeaf(td.name, v), nil
}

// convertMap accepts a JSON object or a list of [key, value] pairs.
func (d *rowDecoder) convertMap(td *typeDescriptor, raw, parsed any) (any, error) {
	out := make(map[string]any)
	put := func(k, v any) error {
		key, err := d.convert(td.key, k)
		if err != nil {
			return err
		}
		value, err := d.convert(td.value, v)
		if err != nil {
			return err
		}
		out[fmt.Sprint(key)] = value
		return nil
	}
	switch m := parsed.(type) {
	case map[string]any:
		for k, v := range m {
			if err := put(k, v); err != nil {
				return nil, err
			}
		}
	case []any:
		for _, entry := range m {
			pair, ok := entry.([]any)
			if !ok || len(pair) != 2 {
				return raw, nil
			}
			if err := put(pair[0], pair[1]); err != nil {
				return nil, err
			}
		}
	default:
		return raw, nil
	}
	return out, nil
}

// parseNested decodes a JSON encoded STRUCT, ARRAY or MAP cell. Values that
// are not strings were decoded with their parent and are returned as is.
func (d *rowDecoder) parseNested(td *typeDescriptor, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var parsed any
	err := dec.Decode(&parsed)
	if err == nil {
		if _, err = dec.Token(); err == nil {
			err = errTrailingData
		} else if errors.Is(err, io.EOF) {
			err = nil
		}
	}
	if err != nil {
		return nil, &StatementError{
			Number:      ErrCodeInvalidValueFormat,
			StatementID: d.statementID,
			Message:     errMsgFailedToParseValue,
			MessageArgs: []interface{}{td.name, err},
			cause:       err,
		}
	}
	return parsed, nil
}

func (d *rowDecoder) convertLeaf(name string, v any) any {
	switch name {
	case "TINYINT", "BYTE", "SMALLINT", "SHORT", "INT", "INTEGER":
		if s, ok := cellString(v); ok {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i
			}
		}
		return v
	case "FLOAT", "REAL", "DOUBLE":
		return parseFloatCell(v)
	case "BIGINT", "LONG":
		s, ok := cellString(v)
		if !ok {
			return v
		}
		i, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return v
		}
		if d.hooks.encodeBigInt != nil {
			return d.hooks.encodeBigInt(i)
		}
		return i
	case "BOOLEAN":
		switch v {
		case "true":
			return true
		case "false":
			return false
		}
		return v
	}
	if strings.HasPrefix(name, "TIMESTAMP") {
		if s, ok := v.(string); ok && d.hooks.encodeTimestamp != nil {
			return d.hooks.encodeTimestamp(s)
		}
	}
	return v
}

var errTrailingData = errors.New("unexpected data after the value")

// convertDecimal keeps integral decimals that fit in int64 exact.
func convertDecimal(td *typeDescriptor, v any) any {
	if td.scale == 0 && td.precision <= 18 {
		if s, ok := cellString(v); ok {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i
			}
		}
	}
	return parseFloatCell(v)
}

func parseFloatCell(v any) any {
	if s, ok := cellString(v); ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return v
}

// cellString returns the text of string and json.Number cells.
func cellString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	}
	return "", false
}
