package models

// Modification operations. The set is closed; anything else is rejected.
const (
	OpModifyClass             = "modify_class"
	OpModifyState             = "modify_state"
	OpModifyAttribute         = "modify_attribute"
	OpModifyMethod            = "modify_method"
	OpModifyIntent            = "modify_intent"
	OpAddRelationship         = "add_relationship"
	OpAddTransition           = "add_transition"
	OpRemoveTransition        = "remove_transition"
	OpAddStateBody            = "add_state_body"
	OpAddIntentTrainingPhrase = "add_intent_training_phrase"
	OpRemoveElement           = "remove_element"
)

// Operations lists the full modification vocabulary.
var Operations = []string{
	OpModifyClass,
	OpModifyState,
	OpModifyAttribute,
	OpModifyMethod,
	OpModifyIntent,
	OpAddRelationship,
	OpAddTransition,
	OpRemoveTransition,
	OpAddStateBody,
	OpAddIntentTrainingPhrase,
	OpRemoveElement,
}

// Modification describes one atomic edit of an editor-owned model.
// Target locates the element by its canonical name fields; Changes carries
// only the fields being altered.
type Modification struct {
	Action  string         `json:"action"`
	Target  map[string]any `json:"target"`
	Changes map[string]any `json:"changes,omitempty"`
}
