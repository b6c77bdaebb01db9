// Package library imports and exports user invocations and collections as
// YAML documents.
package library

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/dhikr/internal/model"
)

// DocumentVersion is the only supported document version.
const DocumentVersion = 1

// Document is the on-disk library format.
type Document struct {
	Version     int             `yaml:"version"`
	Invocations []InvocationDoc `yaml:"invocations,omitempty"`
	Collections []CollectionDoc `yaml:"collections,omitempty"`
}

// InvocationDoc is one invocation entry.
type InvocationDoc struct {
	ID          string            `yaml:"id,omitempty"`
	Name        model.DisplayText `yaml:"name"`
	Repetitions int               `yaml:"repetitions"`
	Description model.DisplayText `yaml:"description,omitempty"`
}

// CollectionDoc is one collection entry.
type CollectionDoc struct {
	ID          string            `yaml:"id,omitempty"`
	Name        model.DisplayText `yaml:"name"`
	Description model.DisplayText `yaml:"description,omitempty"`
	Members     []MemberDoc       `yaml:"members"`
}

// MemberDoc references an invocation by id.
type MemberDoc struct {
	Invocation  string `yaml:"invocation"`
	Repetitions int    `yaml:"repetitions,omitempty"`
}

// Store is the part of the library store used for import and export.
type Store interface {
	ListInvocations(ctx context.Context) ([]model.Invocation, error)
	ListCollections(ctx context.Context) ([]model.Collection, error)
	Invocation(ctx context.Context, id string) (model.Invocation, bool, error)
	SaveLibrary(ctx context.Context, invs []model.Invocation, cols []model.Collection) error
}

// Summary counts what was written.
type Summary struct {
	Invocations int
	Collections int
}

// Export writes all user (non built-in) items to w.
func Export(ctx context.Context, st Store, w io.Writer) (Summary, error) {
	invs, err := st.ListInvocations(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list invocations: %w", err)
	}
	cols, err := st.ListCollections(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list collections: %w", err)
	}
	doc := Document{Version: DocumentVersion}
	for _, inv := range invs {
		if inv.Builtin {
			continue
		}
		doc.Invocations = append(doc.Invocations, InvocationDoc{
			ID:          inv.ID,
			Name:        inv.Name,
			Repetitions: inv.Repetitions,
			Description: inv.Description,
		})
	}
	for _, col := range cols {
		if col.Builtin {
			continue
		}
		cd := CollectionDoc{ID: col.ID, Name: col.Name, Description: col.Description}
		for _, m := range col.Members {
			cd.Members = append(cd.Members, MemberDoc{Invocation: m.InvocationID, Repetitions: m.RepetitionsOverride})
		}
		doc.Collections = append(doc.Collections, cd)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return Summary{}, fmt.Errorf("failed to encode library: %w", err)
	}
	if err := enc.Close(); err != nil {
		return Summary{}, fmt.Errorf("failed to encode library: %w", err)
	}
	return Summary{Invocations: len(doc.Invocations), Collections: len(doc.Collections)}, nil
}

// Decode parses and validates a document without touching any store.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("failed to decode library: %w", err)
	}
	if doc.Version != DocumentVersion {
		return Document{}, fmt.Errorf("unsupported library version %d (want %d)", doc.Version, DocumentVersion)
	}
	return doc, nil
}

// Import upserts every item of the document read from r. Items without an id
// get a new one. Either the whole document is saved or nothing is.
func Import(ctx context.Context, st Store, r io.Reader) (Summary, error) {
	doc, err := Decode(r)
	if err != nil {
		return Summary{}, err
	}

	known := map[string]struct{}{}
	invs := make([]model.Invocation, 0, len(doc.Invocations))
	for i, d := range doc.Invocations {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		if d.Repetitions <= 0 {
			return Summary{}, fmt.Errorf("invocation %d (%s): %w", i, id, model.ErrInvalidRepetitions)
		}
		known[id] = struct{}{}
		invs = append(invs, model.Invocation{
			ID:          id,
			Name:        d.Name,
			Repetitions: d.Repetitions,
			Description: d.Description,
		})
	}

	cols := make([]model.Collection, 0, len(doc.Collections))
	for i, d := range doc.Collections {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		col := model.Collection{ID: id, Name: d.Name, Description: d.Description}
		for j, m := range d.Members {
			if _, ok := known[m.Invocation]; !ok {
				_, found, err := st.Invocation(ctx, m.Invocation)
				if err != nil {
					return Summary{}, fmt.Errorf("failed to look up invocation %q: %w", m.Invocation, err)
				}
				if !found {
					return Summary{}, fmt.Errorf("collection %d (%s) member %d: unknown invocation %q", i, id, j, m.Invocation)
				}
			}
			col.Members = append(col.Members, model.Member{InvocationID: m.Invocation, RepetitionsOverride: m.Repetitions})
		}
		cols = append(cols, col)
	}

	if err := st.SaveLibrary(ctx, invs, cols); err != nil {
		return Summary{}, fmt.Errorf("failed to import library: %w", err)
	}
	return Summary{Invocations: len(invs), Collections: len(cols)}, nil
}
