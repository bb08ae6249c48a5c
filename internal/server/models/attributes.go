package models

import (
	"encoding/json"
	"fmt"
)

const (
	attrName     = "name"
	attrType     = "type"
	attrSize     = "size"
	attrGateway  = "onlyoffice"
	attrVersions = "onlyoffice_versions"
)

// Attributes is the typed view of the asset's free-form JSON attributes.
// Keys the gateway does not know about are kept and written back unchanged.
type Attributes struct {
	Name     string
	Type     string
	Size     int64
	Gateway  GatewayState
	Versions []VersionRecord

	extra map[string]json.RawMessage
}

func (a Attributes) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.extra)+5)
	for k, v := range a.extra {
		out[k] = v
	}

	if a.Name != "" {
		out[attrName] = a.Name
	}
	if a.Type != "" {
		out[attrType] = a.Type
	}
	out[attrSize] = a.Size
	out[attrGateway] = a.Gateway

	versions := a.Versions
	if versions == nil {
		versions = []VersionRecord{}
	}
	out[attrVersions] = versions

	return json.Marshal(out)
}

func (a *Attributes) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*a = Attributes{}

	if v, ok := raw[attrName]; ok {
		if err := decodeOptional(v, &a.Name); err != nil {
			return fmt.Errorf("attributes.%s: %w", attrName, err)
		}
		delete(raw, attrName)
	}
	if v, ok := raw[attrType]; ok {
		if err := decodeOptional(v, &a.Type); err != nil {
			return fmt.Errorf("attributes.%s: %w", attrType, err)
		}
		delete(raw, attrType)
	}
	if v, ok := raw[attrSize]; ok {
		var n json.Number
		if err := decodeOptional(v, &n); err != nil {
			return fmt.Errorf("attributes.%s: %w", attrSize, err)
		}
		a.Size = numberToInt64(n)
		delete(raw, attrSize)
	}
	if v, ok := raw[attrGateway]; ok {
		if err := decodeOptional(v, &a.Gateway); err != nil {
			return fmt.Errorf("attributes.%s: %w", attrGateway, err)
		}
		delete(raw, attrGateway)
	}
	if v, ok := raw[attrVersions]; ok {
		if err := decodeOptional(v, &a.Versions); err != nil {
			return fmt.Errorf("attributes.%s: %w", attrVersions, err)
		}
		delete(raw, attrVersions)
	}

	if len(raw) > 0 {
		a.extra = raw
	}
	return nil
}

// Extra returns a raw attribute the typed view does not model.
func (a *Attributes) Extra(key string) (json.RawMessage, bool) {
	v, ok := a.extra[key]
	return v, ok
}

func decodeOptional(raw json.RawMessage, dst any) error {
	if string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func numberToInt64(n json.Number) int64 {
	if n == "" {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return int64(f)
	}
	return 0
}
