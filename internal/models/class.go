package models

// Attribute is a class attribute owned by exactly one class.
type Attribute struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Visibility string  `json:"visibility"`
	Owner      string  `json:"owner"`
	Bounds     *Bounds `json:"bounds,omitempty"`
}

// Parameter is a single method parameter.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Method is a class operation owned by exactly one class.
type Method struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	ReturnType string      `json:"returnType"`
	Visibility string      `json:"visibility"`
	Parameters []Parameter `json:"parameters"`
	Owner      string      `json:"owner"`
	Bounds     *Bounds     `json:"bounds,omitempty"`
}

// Class is a class-diagram element.
type Class struct {
	ID         string      `json:"id"`
	ClassName  string      `json:"className"`
	Attributes []Attribute `json:"attributes"`
	Methods    []Method    `json:"methods"`
	Bounds     *Bounds     `json:"bounds,omitempty"`
}

// Relationship types understood by the class diagram editor.
const (
	RelAssociation = "Association"
	RelInheritance = "Inheritance"
	RelComposition = "Composition"
	RelAggregation = "Aggregation"
	RelRealization = "Realization"
	RelDependency  = "Dependency"
)

// Relationship is a directed edge between two classes, referenced by name.
type Relationship struct {
	Type               string `json:"type"`
	Source             string `json:"source"`
	Target             string `json:"target"`
	SourceMultiplicity string `json:"sourceMultiplicity,omitempty"`
	TargetMultiplicity string `json:"targetMultiplicity,omitempty"`
	Name               string `json:"name,omitempty"`
}

// ClassSystem is a complete class diagram.
type ClassSystem struct {
	SystemName    string         `json:"systemName"`
	Classes       []Class        `json:"classes"`
	Relationships []Relationship `json:"relationships"`
}
