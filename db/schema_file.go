package db

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"heapdb/catalog"
	"heapdb/catalog/db_types"
)

var ErrInvalidSchema = errors.New("invalid catalog entry")

// TableDef is one table of a catalog file.
type TableDef struct {
	Name       string
	Schema     *catalog.Schema
	PrimaryKey string
}

// ParseSchema reads a catalog file. Every line describes one table:
//
//	name (field type [pk], field type, ...)
//
// where type is int or string and pk marks the primary key. Blank lines and lines starting with # are skipped.
func ParseSchema(r io.Reader) ([]TableDef, error) {
	var defs []TableDef
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		def, err := parseTableDef(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		defs = append(defs, def)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return defs, nil
}

func parseTableDef(line string) (TableDef, error) {
	open, closing := strings.Index(line, "("), strings.LastIndex(line, ")")
	if open <= 0 || closing < open {
		return TableDef{}, fmt.Errorf("%w: %q", ErrInvalidSchema, line)
	}

	def := TableDef{Name: strings.TrimSpace(line[:open])}
	if def.Name == "" {
		return TableDef{}, fmt.Errorf("%w: missing table name in %q", ErrInvalidSchema, line)
	}

	var cols []catalog.Column
	for _, field := range strings.Split(line[open+1:closing], ",") {
		parts := strings.Fields(field)
		if len(parts) < 2 || len(parts) > 3 {
			return TableDef{}, fmt.Errorf("%w: field %q", ErrInvalidSchema, strings.TrimSpace(field))
		}

		typeID, err := db_types.ParseType(strings.ToLower(parts[1]))
		if err != nil {
			return TableDef{}, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
		}

		if len(parts) == 3 {
			if parts[2] != "pk" {
				return TableDef{}, fmt.Errorf("%w: unknown annotation %q", ErrInvalidSchema, parts[2])
			}
			def.PrimaryKey = parts[0]
		}
		cols = append(cols, catalog.Column{Name: parts[0], TypeId: typeID})
	}

	schema, err := catalog.NewSchema(cols)
	if err != nil {
		return TableDef{}, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	def.Schema = schema
	return def, nil
}
