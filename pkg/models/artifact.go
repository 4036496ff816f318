package models

// ArtifactKind identifies one of the deployable SQL artifact flavors the
// script assembler can produce.
type ArtifactKind string

const (
	// ArtifactInsert is an INSERT population script: one statement per node
	// in dependency order, computed rows reading previously inserted ones.
	ArtifactInsert ArtifactKind = "insert"

	// ArtifactView is a single master view with one CTE per node.
	ArtifactView ArtifactKind = "view"

	// ArtifactMappingView expands raw mapped source rows into per-hierarchy
	// assignments for the selected leaf nodes.
	ArtifactMappingView ArtifactKind = "mapping_view"

	// ArtifactDynamicTable is the view body wrapped in the dialect's
	// materialization DDL (dynamic table, materialized view).
	ArtifactDynamicTable ArtifactKind = "dynamic_table"
)

// ValidArtifactKinds contains all valid artifact kinds.
var ValidArtifactKinds = []ArtifactKind{
	ArtifactInsert,
	ArtifactView,
	ArtifactMappingView,
	ArtifactDynamicTable,
}

// IsValidArtifactKind checks if the given kind is valid.
func IsValidArtifactKind(k ArtifactKind) bool {
	for _, v := range ValidArtifactKinds {
		if v == k {
			return true
		}
	}
	return false
}
