package normalize

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/akhdanfadh/urlkeep/internal/epoch"
	"github.com/akhdanfadh/urlkeep/internal/tree"
)

// syntheticPrefix names groups the user never labelled.
const syntheticPrefix = "onetab_group_"

type rawGroup struct {
	CreateDate any      `json:"createDate"`
	Label      *string  `json:"label"`
	TabsMeta   []rawTab `json:"tabsMeta"`
}

type rawTab struct {
	ID    any    `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// DecodeGroups reads OneTab state JSON.
//
//	{"tabGroups": [{"createDate": 1600000000000, "label": "Research", "tabsMeta": [{"id": "...", "title": "...", "url": "..."}]}]}
//
// label is optional.
func DecodeGroups(r io.Reader) (*GroupExport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var state struct {
		TabGroups []json.RawMessage `json:"tabGroups"`
	}
	if err := unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decoding tab groups: %w", err)
	}
	if state.TabGroups == nil {
		return nil, &SchemaError{Reason: `missing "tabGroups" list`}
	}

	doc := &GroupExport{Groups: make([]Group, 0, len(state.TabGroups))}
	for i, groupData := range state.TabGroups {
		var raw rawGroup
		if err := unmarshal(groupData, &raw); err != nil {
			return nil, &SchemaError{Path: fmt.Sprintf("tabGroups[%d]", i), Reason: "malformed group", Err: err}
		}
		group := Group{CreateDate: raw.CreateDate, Label: raw.Label}
		for _, tab := range raw.TabsMeta {
			group.Tabs = append(group.Tabs, Tab{ID: tab.ID, Title: tab.Title, URL: tab.URL})
		}
		doc.Groups = append(doc.Groups, group)
	}
	return doc, nil
}

// ReadFirefoxStorage reads the OneTab Firefox extension storage file, whose
// "state" field holds the OneTab state as a JSON string.
func ReadFirefoxStorage(r io.Reader) (*GroupExport, string, error) {
	var storage struct {
		State *string `json:"state"`
	}
	if err := json.NewDecoder(r).Decode(&storage); err != nil {
		return nil, "", fmt.Errorf("decoding storage file: %w", err)
	}
	if storage.State == nil {
		return nil, "", &SchemaError{Reason: `missing "state" string`}
	}
	doc, err := DecodeGroups(strings.NewReader(*storage.State))
	if err != nil {
		return nil, "", err
	}
	return doc, *storage.State, nil
}

// SyntheticName returns the folder name for an unlabelled group created at t.
// It depends on nothing but t, so reruns over the same input agree.
func SyntheticName(t time.Time) string {
	return fmt.Sprintf("%s%d", syntheticPrefix, t.Unix())
}

// Groups converts a OneTab export into a canonical tree with one top-level
// folder per group. Labelled groups keep their label, which must be unique.
// Every tab takes its group's creation time.
func Groups(doc *GroupExport, loc *time.Location) (*tree.Node, error) {
	root := tree.New()
	for i, group := range doc.Groups {
		path := fmt.Sprintf("tabGroups[%d]", i)

		created, err := epoch.FromOneTab(group.CreateDate)
		if err != nil {
			return nil, &SchemaError{Path: path, Reason: "invalid createDate", Err: err}
		}
		dateAdded := epoch.Format(created, loc)

		name := SyntheticName(created)
		if group.Label != nil {
			name = *group.Label
		}

		node := tree.New()
		for _, tab := range group.Tabs {
			node.AddLink(tree.Link{Title: tab.Title, URL: tab.URL, DateAdded: dateAdded})
		}

		if err := addFolder(root, name, node, []string{path}); err != nil {
			return nil, err
		}
	}
	return root, nil
}
