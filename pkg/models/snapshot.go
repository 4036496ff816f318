package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// ProjectSnapshot is an immutable view of one project's hierarchy nodes and
// formula attachments. The engine's resolver and compiler operate on a
// snapshot only, so repeated invocations with the same snapshot are safe to
// cache by Fingerprint.
type ProjectSnapshot struct {
	Nodes         map[string]*HierarchyNode
	TotalFormulas map[string]*TotalFormula
	FormulaGroups map[string]*FormulaGroup
}

// NewProjectSnapshot builds a snapshot from slices, keying by hierarchy id.
func NewProjectSnapshot(nodes []*HierarchyNode, totals []*TotalFormula, groups []*FormulaGroup) *ProjectSnapshot {
	s := &ProjectSnapshot{
		Nodes:         make(map[string]*HierarchyNode, len(nodes)),
		TotalFormulas: make(map[string]*TotalFormula, len(totals)),
		FormulaGroups: make(map[string]*FormulaGroup, len(groups)),
	}
	for _, n := range nodes {
		s.Nodes[n.ID] = n
	}
	for _, f := range totals {
		s.TotalFormulas[f.HierarchyID] = f
	}
	for _, g := range groups {
		s.FormulaGroups[g.HierarchyID] = g
	}
	return s
}

// HasNode reports whether the project contains a node with the given id.
func (s *ProjectSnapshot) HasNode(id string) bool {
	_, ok := s.Nodes[id]
	return ok
}

// HasFormula reports whether the node carries either formula kind.
func (s *ProjectSnapshot) HasFormula(id string) bool {
	if _, ok := s.FormulaGroups[id]; ok {
		return true
	}
	_, ok := s.TotalFormulas[id]
	return ok
}

// ReferencedIDs returns the hierarchy ids the node's effective formula
// references. The FormulaGroup wins when a node carries both kinds (the
// model does not hard-enforce exclusivity, so the policy lives here).
func (s *ProjectSnapshot) ReferencedIDs(id string) []string {
	if g, ok := s.FormulaGroups[id]; ok {
		return g.ReferencedIDs()
	}
	if f, ok := s.TotalFormulas[id]; ok {
		return f.ReferencedIDs()
	}
	return nil
}

// FormulaNodeIDs returns the ids of all nodes carrying a formula, sorted for
// deterministic iteration.
func (s *ProjectSnapshot) FormulaNodeIDs() []string {
	ids := make([]string, 0, len(s.TotalFormulas)+len(s.FormulaGroups))
	seen := make(map[string]bool)
	for id := range s.TotalFormulas {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range s.FormulaGroups {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// NodeName returns the display name for a node, falling back to its id when
// the node is unknown (dangling references still need a label in errors).
func (s *ProjectSnapshot) NodeName(id string) string {
	if n, ok := s.Nodes[id]; ok {
		return n.Name
	}
	return id
}

// Fingerprint returns a stable content hash of the snapshot. Two snapshots
// with the same nodes and formulas produce the same fingerprint regardless
// of map iteration order.
func (s *ProjectSnapshot) Fingerprint() string {
	type entry struct {
		Node  *HierarchyNode `json:"node,omitempty"`
		Total *TotalFormula  `json:"total,omitempty"`
		Group *FormulaGroup  `json:"group,omitempty"`
	}

	ids := make(map[string]bool, len(s.Nodes))
	for id := range s.Nodes {
		ids[id] = true
	}
	for id := range s.TotalFormulas {
		ids[id] = true
	}
	for id := range s.FormulaGroups {
		ids[id] = true
	}
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, id := range sorted {
		e := entry{
			Node:  s.Nodes[id],
			Total: s.TotalFormulas[id],
			Group: s.FormulaGroups[id],
		}
		// Encoding errors are impossible for these types.
		_ = enc.Encode(e)
	}
	return hex.EncodeToString(h.Sum(nil))
}
