package models

import "encoding/json"

// StringField is one field of a sparse update. Set reports whether the key
// appeared in the payload at all; a Set field with a nil Value is an explicit
// null and clears the column. Absent keys leave the column untouched.
type StringField struct {
	Set   bool
	Value *string
}

// WorkflowPatch is a sparse metadata update. Only the fields a caller
// explicitly supplies are applied; the ingestion pipeline never uses this.
type WorkflowPatch struct {
	Name          StringField
	Workdir       StringField
	SnakefilePath StringField
	ArgumentsJSON StringField
}

// Empty reports whether the patch carries no fields.
func (p WorkflowPatch) Empty() bool {
	return !p.Name.Set && !p.Workdir.Set && !p.SnakefilePath.Set && !p.ArgumentsJSON.Set
}

// UnmarshalJSON records key presence separately from value so that absent
// and explicitly-null fields are distinguishable. Unknown keys are ignored,
// matching the previous service's behavior.
func (p *WorkflowPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fields := map[string]*StringField{
		"name":           &p.Name,
		"workdir":        &p.Workdir,
		"snakefile_path": &p.SnakefilePath,
		"arguments_json": &p.ArgumentsJSON,
	}
	for key, field := range fields {
		value, ok := raw[key]
		if !ok {
			continue
		}
		field.Set = true
		if err := json.Unmarshal(value, &field.Value); err != nil {
			return err
		}
	}
	return nil
}
