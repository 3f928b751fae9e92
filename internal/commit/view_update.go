package commit

import (
	"fmt"

	"github.com/lakekeeper/catalog/internal/domain"
)

// ViewUpdateKind enumerates the update operations the Iceberg REST spec
// defines for views, the view-commit peer of TableUpdateKind.
type ViewUpdateKind string

const (
	ViewUpdateAssignUUID       ViewUpdateKind = "assign-uuid"
	ViewUpdateUpgradeFormat    ViewUpdateKind = "upgrade-format-version"
	ViewUpdateAddSchema        ViewUpdateKind = "add-schema"
	ViewUpdateSetLocation      ViewUpdateKind = "set-location"
	ViewUpdateSetProperties    ViewUpdateKind = "set-properties"
	ViewUpdateRemoveProperties ViewUpdateKind = "remove-properties"
	ViewUpdateAddViewVersion   ViewUpdateKind = "add-view-version"
	ViewUpdateSetCurrentVersion ViewUpdateKind = "set-current-view-version"
)

// ViewUpdate is one step of a view commit's update list.
type ViewUpdate struct {
	Kind ViewUpdateKind

	UUID string

	FormatVersion int

	Schema domain.Schema

	Location string

	Properties       map[string]string
	PropertiesToDrop []string

	ViewVersion domain.ViewVersion
	VersionID   int // set-current-view-version (or -1 for "last added")
}

// ApplyViewUpdates is the view analogue of ApplyTableUpdates.
func ApplyViewUpdates(base domain.ViewMetadata, updates []ViewUpdate) (domain.ViewMetadata, error) {
	m := cloneViewMetadata(base)

	for _, u := range updates {
		if err := applyViewUpdate(&m, u); err != nil {
			return domain.ViewMetadata{}, fmt.Errorf("apply %s: %w", u.Kind, err)
		}
	}

	return m, nil
}

func applyViewUpdate(m *domain.ViewMetadata, u ViewUpdate) error {
	switch u.Kind {
	case ViewUpdateAssignUUID:
		if m.ViewUUID != "" && m.ViewUUID != u.UUID {
			return fmt.Errorf("view uuid already assigned")
		}

		m.ViewUUID = u.UUID
	case ViewUpdateUpgradeFormat:
		if u.FormatVersion < m.FormatVersion {
			return fmt.Errorf("cannot downgrade format version %d to %d", m.FormatVersion, u.FormatVersion)
		}

		m.FormatVersion = u.FormatVersion
	case ViewUpdateAddSchema:
		m.Schemas = append(m.Schemas, u.Schema)
		m.CurrentSchemaID = u.Schema.SchemaID
	case ViewUpdateSetLocation:
		m.Location = u.Location
	case ViewUpdateSetProperties:
		if m.Properties == nil {
			m.Properties = map[string]string{}
		}

		for k, v := range u.Properties {
			m.Properties[k] = v
		}
	case ViewUpdateRemoveProperties:
		for _, k := range u.PropertiesToDrop {
			delete(m.Properties, k)
		}
	case ViewUpdateAddViewVersion:
		m.Versions = append(m.Versions, u.ViewVersion)
	case ViewUpdateSetCurrentVersion:
		id := u.VersionID
		if id == -1 && len(m.Versions) > 0 {
			id = m.Versions[len(m.Versions)-1].VersionID
		}

		if !containsVersionID(m.Versions, id) {
			return fmt.Errorf("unknown view version id %d", id)
		}

		m.CurrentVersionID = id
		m.VersionLog = append(m.VersionLog, domain.ViewVersionLogEntry{VersionID: id})
	default:
		return fmt.Errorf("unknown view update kind %q", u.Kind)
	}

	return nil
}

func cloneViewMetadata(m domain.ViewMetadata) domain.ViewMetadata {
	out := m
	out.Versions = append([]domain.ViewVersion{}, m.Versions...)
	out.VersionLog = append([]domain.ViewVersionLogEntry{}, m.VersionLog...)
	out.Schemas = append([]domain.Schema{}, m.Schemas...)

	out.Properties = make(map[string]string, len(m.Properties))
	for k, v := range m.Properties {
		out.Properties[k] = v
	}

	return out
}

func containsVersionID(versions []domain.ViewVersion, id int) bool {
	for _, v := range versions {
		if v.VersionID == id {
			return true
		}
	}

	return false
}
