// Package diff compares freshly built entity documents against the copies
// a published site is serving and annotates them with change markers, so a
// curator can review exactly what a publish would alter.
package diff

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/exhibitkit/constellate/internal/model"
	"github.com/exhibitkit/constellate/internal/store"
)

// Fetcher retrieves the published copies of data artifacts.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string, out any) error
}

// Differ annotates local documents with their differences from a site.
type Differ struct {
	fetcher Fetcher
	store   *store.Store
	logger  *zap.Logger
}

// New creates a differ over the given store.
func New(fetcher Fetcher, st *store.Store, logger *zap.Logger) *Differ {
	return &Differ{fetcher: fetcher, store: st, logger: logger}
}

// CompareSite diffs every persisted document against the copy served at
// siteURL, rewrites the changed ones with status markers, and diffs the
// entity index against the published one. Documents the site does not
// serve are marked new wholesale.
func (d *Differ) CompareSite(ctx context.Context, siteURL string) error {
	siteURL = strings.TrimSuffix(siteURL, "/")

	ids, err := d.store.Documents()
	if err != nil {
		return err
	}
	changed := make(map[string]bool)
	for _, id := range ids {
		doc, err := d.store.ReadDocument(id)
		if err != nil {
			return err
		}

		var remote model.EntityDocument
		url := siteURL + "/data/" + id + ".json"
		if err := d.fetcher.FetchJSON(ctx, url, &remote); err != nil {
			d.logger.Debug("no published copy", zap.String("id", id), zap.Error(err))
			doc.Status = model.StatusNew
			changed[id] = true
		} else if DiffDocument(doc, &remote) {
			changed[id] = true
		}
		if changed[id] {
			if err := d.store.WriteDocument(doc); err != nil {
				return err
			}
			d.logger.Info("document changed", zap.String("id", id))
		}
	}

	index, err := d.store.ReadIndex()
	if err != nil {
		return err
	}
	var remoteIndex []model.IndexEntry
	if err := d.fetcher.FetchJSON(ctx, siteURL+"/data/"+store.IndexFile, &remoteIndex); err != nil {
		d.logger.Debug("no published index", zap.Error(err))
	}
	index = DiffIndex(index, remoteIndex, changed)
	return d.store.WriteIndex(index)
}

// DiffDocument annotates local with its differences from remote and
// reports whether anything differs. Remote groups already marked removed
// are treated as absent, so re-diffing an annotated site copy does not
// resurrect them; groups the site has but the build dropped are copied
// back as removed tombstones.
func DiffDocument(local, remote *model.EntityDocument) bool {
	changed := false
	mark := func(field *string, status string) {
		*field = status
		changed = true
	}

	if local.Label != remote.Label {
		mark(&local.LabelStatus, model.StatusUpdated)
	}
	if local.Description != remote.Description {
		mark(&local.DescriptionStatus, model.StatusUpdated)
	}
	if local.Biography != remote.Biography {
		mark(&local.BiographyStatus, model.StatusUpdated)
	}

	switch {
	case len(local.Publications) > 0 && len(remote.Publications) == 0:
		mark(&local.PublicationsStatus, model.StatusNew)
	case len(local.Publications) == 0 && len(remote.Publications) > 0:
		local.Publications = remote.Publications
		mark(&local.PublicationsStatus, model.StatusRemoved)
	case !equalJSON(local.Publications, remote.Publications):
		mark(&local.PublicationsStatus, model.StatusUpdated)
	}

	remoteGroups := make(map[string]model.PropertyGroup)
	for key, group := range remote.Properties {
		if group.Status == model.StatusRemoved {
			continue
		}
		group.Status = ""
		remoteGroups[key] = group
	}

	for key, group := range local.Properties {
		remoteGroup, ok := remoteGroups[key]
		if !ok {
			group.Status = model.StatusNew
			local.Properties[key] = group
			changed = true
			continue
		}
		if !equalJSON(group, remoteGroup) {
			group.Status = model.StatusUpdated
			local.Properties[key] = group
			changed = true
		}
	}
	for key, group := range remoteGroups {
		if _, ok := local.Properties[key]; ok {
			continue
		}
		group.Status = model.StatusRemoved
		local.Properties[key] = group
		changed = true
	}

	return changed
}

// DiffIndex annotates the local index rows: rows the remote index lacks
// are new, rows whose documents changed in this run are updated, and
// remote rows with no local counterpart are appended as removed.
func DiffIndex(local, remote []model.IndexEntry, changed map[string]bool) []model.IndexEntry {
	remoteByID := make(map[string]bool, len(remote))
	for _, entry := range remote {
		if entry.Status != model.StatusRemoved {
			remoteByID[entry.ID] = true
		}
	}
	localByID := make(map[string]bool, len(local))
	for _, entry := range local {
		localByID[entry.ID] = true
	}

	for i := range local {
		switch {
		case !remoteByID[local[i].ID]:
			local[i].Status = model.StatusNew
		case changed[local[i].ID]:
			local[i].Status = model.StatusUpdated
		}
	}
	for _, entry := range remote {
		if entry.Status == model.StatusRemoved || localByID[entry.ID] {
			continue
		}
		entry.Status = model.StatusRemoved
		local = append(local, entry)
	}
	return local
}

func equalJSON(a, b any) bool {
	aj, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}
