package store

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	entschema "entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	"github.com/abhisek/edusarthi/ent/schema"
)

const llmEventsTable = "llm_request_events"

// tables lists every ent schema persisted by the store.
var tables = []struct {
	name   string
	schema ent.Interface
}{
	{llmEventsTable, schema.LLMRequestEvent{}},
}

// tableFor derives a migration table from an ent schema, mixins first,
// with an auto-increment integer id as primary key.
func tableFor(name string, s ent.Interface) (*entschema.Table, error) {
	id := &entschema.Column{Name: "id", Type: field.TypeInt, Increment: true}
	t := &entschema.Table{
		Name:       name,
		Columns:    []*entschema.Column{id},
		PrimaryKey: []*entschema.Column{id},
	}

	var (
		fields  []ent.Field
		indexes []ent.Index
	)
	for _, m := range s.Mixin() {
		fields = append(fields, m.Fields()...)
		indexes = append(indexes, m.Indexes()...)
	}
	fields = append(fields, s.Fields()...)
	indexes = append(indexes, s.Indexes()...)

	columns := make(map[string]*entschema.Column, len(fields))
	for _, f := range fields {
		d := f.Descriptor()
		if d.Err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, d.Name, d.Err)
		}
		c := &entschema.Column{
			Name:     d.Name,
			Type:     d.Info.Type,
			Unique:   d.Unique,
			Nullable: d.Optional || d.Nillable,
			Size:     d.Size,
		}
		// Function defaults such as time.Now are applied by the writer.
		switch v := d.Default.(type) {
		case string, bool, int, int64, float64:
			c.Default = v
		}
		t.Columns = append(t.Columns, c)
		columns[d.Name] = c
	}

	for _, ix := range indexes {
		d := ix.Descriptor()
		idx := &entschema.Index{
			Name:   name + "_" + strings.Join(d.Fields, "_"),
			Unique: d.Unique,
		}
		for _, fname := range d.Fields {
			c, ok := columns[fname]
			if !ok {
				return nil, fmt.Errorf("%s: index on unknown field %q", name, fname)
			}
			idx.Columns = append(idx.Columns, c)
		}
		t.Indexes = append(t.Indexes, idx)
	}
	return t, nil
}

// migrate creates or updates every table through ent's schema migrator.
func migrate(ctx context.Context, drv dialect.Driver) error {
	var ts []*entschema.Table
	for _, t := range tables {
		table, err := tableFor(t.name, t.schema)
		if err != nil {
			return err
		}
		ts = append(ts, table)
	}

	m, err := entschema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	return m.Create(ctx, ts...)
}
