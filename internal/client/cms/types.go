package cms

import (
	"bytes"
	"encoding/json"
)

// Relationship is one named relationship on a JSON:API resource.
// Drupal serializes to-one relationships as a single object and
// to-many ones as an array; both decode into the same ref list here.
type Relationship struct {
	Data RefList `json:"data"`
}

type Ref struct {
	Type string  `json:"type"`
	ID   string  `json:"id"`
	Meta RefMeta `json:"meta"`
}

type RefMeta struct {
	TargetID int `json:"drupal_internal__target_id"`
}

type RefList []Ref

func (r *RefList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = nil
		return nil
	}
	if len(b) > 0 && b[0] == '[' {
		type plain RefList
		return json.Unmarshal(b, (*plain)(r))
	}
	var one Ref
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*r = RefList{one}
	return nil
}

// TargetIDs returns the external numeric identifiers of the referenced
// records, preserving upstream order.
func (rel Relationship) TargetIDs() []int {
	if len(rel.Data) == 0 {
		return nil
	}
	ids := make([]int, 0, len(rel.Data))
	for _, ref := range rel.Data {
		ids = append(ids, ref.Meta.TargetID)
	}
	return ids
}

// TargetID returns the single referenced identifier of a to-one
// relationship, or false when the relationship is empty.
func (rel Relationship) TargetID() (int, bool) {
	if len(rel.Data) == 0 {
		return 0, false
	}
	return rel.Data[0].Meta.TargetID, true
}
