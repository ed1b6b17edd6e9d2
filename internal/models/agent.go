package models

// Transition conditions accepted by the agent editor.
const (
	ConditionIntentMatched     = "when_intent_matched"
	ConditionNoIntentMatched   = "when_no_intent_matched"
	ConditionVariableOperation = "when_variable_operation_matched"
	ConditionFileReceived      = "when_file_received"
	ConditionAuto              = "auto"
)

// Conditions is the closed set of agent transition conditions.
var Conditions = []string{
	ConditionIntentMatched,
	ConditionNoIntentMatched,
	ConditionVariableOperation,
	ConditionFileReceived,
	ConditionAuto,
}

// AgentState is a conversational state with the replies it sends.
type AgentState struct {
	ID              string   `json:"id"`
	StateName       string   `json:"stateName"`
	Replies         []string `json:"replies"`
	FallbackReplies []string `json:"fallbackReplies"`
	Bounds          *Bounds  `json:"bounds,omitempty"`
}

// AgentIntent is a user intent with its training phrases.
type AgentIntent struct {
	ID              string   `json:"id"`
	IntentName      string   `json:"intentName"`
	Description     string   `json:"description,omitempty"`
	TrainingPhrases []string `json:"trainingPhrases"`
	Bounds          *Bounds  `json:"bounds,omitempty"`
}

// AgentTransition moves between two states. Source or Target may be InitialNode.
type AgentTransition struct {
	Source         string `json:"source"`
	Target         string `json:"target"`
	Condition      string `json:"condition"`
	ConditionValue string `json:"conditionValue,omitempty"`
	Label          string `json:"label,omitempty"`
}

// AgentElement is a single state or intent created on its own.
// Type is "state" or "intent"; only the matching half is populated.
type AgentElement struct {
	Type            string   `json:"type"`
	ID              string   `json:"id"`
	StateName       string   `json:"stateName,omitempty"`
	Replies         []string `json:"replies,omitempty"`
	FallbackReplies []string `json:"fallbackReplies,omitempty"`
	IntentName      string   `json:"intentName,omitempty"`
	Description     string   `json:"description,omitempty"`
	TrainingPhrases []string `json:"trainingPhrases,omitempty"`
	Bounds          *Bounds  `json:"bounds,omitempty"`
}

// Agent element kinds.
const (
	AgentElementState  = "state"
	AgentElementIntent = "intent"
)

// AgentSystem is a complete agent diagram.
type AgentSystem struct {
	SystemName     string            `json:"systemName"`
	HasInitialNode bool              `json:"hasInitialNode"`
	States         []AgentState      `json:"states"`
	Intents        []AgentIntent     `json:"intents"`
	Transitions    []AgentTransition `json:"transitions"`
}
