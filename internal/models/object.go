package models

// Slot is an attribute-value pair of an object instance.
type Slot struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Object is an object-diagram instance.
type Object struct {
	ID         string  `json:"id"`
	ObjectName string  `json:"objectName"`
	ClassName  string  `json:"className"`
	Attributes []Slot  `json:"attributes"`
	Bounds     *Bounds `json:"bounds,omitempty"`
}

// Link connects two objects by name.
type Link struct {
	Source           string `json:"source"`
	Target           string `json:"target"`
	RelationshipType string `json:"relationshipType"`
}

// ObjectSystem is a complete object diagram.
type ObjectSystem struct {
	SystemName string   `json:"systemName"`
	Objects    []Object `json:"objects"`
	Links      []Link   `json:"links"`
}
