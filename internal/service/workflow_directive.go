package service

import (
	"fmt"
	"regexp"
	"strings"

	"flowchat-be/pkg/workflow"
)

// DirectiveType says what a leading @-directive in a chat message asks for.
type DirectiveType string

const (
	DirectiveNone         DirectiveType = ""
	DirectiveListFlows    DirectiveType = "list_workflows"
	DirectiveSetWorkflow  DirectiveType = "set_workflow"
	DirectiveWorkflowName DirectiveType = "use_workflow_name"
	DirectiveFlowID       DirectiveType = "use_workflow_id"
)

// WorkflowDirective is the parsed form of a chat message.
type WorkflowDirective struct {
	Type DirectiveType
	// Target is the flow id or the lower-cased workflow name.
	Target string
	// Message is the text left for the engine once the directive is removed.
	Message string
}

// IsCommand reports whether the directive is answered locally, without the engine.
func (d WorkflowDirective) IsCommand() bool {
	return d.Type == DirectiveListFlows || d.Type == DirectiveSetWorkflow
}

// Directive patterns:
// @workflows                 - list the engine's flows
// @set-workflow:name         - bind the session to a flow by name
// @workflow:name message     - send one message to a flow by name
// @flow:id message           - send one message to a flow by id
var (
	listFlowsPattern    = regexp.MustCompile(`(?i)^@workflows?\s*$`)
	setWorkflowPattern  = regexp.MustCompile(`(?i)^@set-workflow:(\S+)\s*$`)
	workflowNamePattern = regexp.MustCompile(`(?is)^@workflow:(\S+)\s+(.*)$`)
	flowIDPattern       = regexp.MustCompile(`(?is)^@flow:(\S+)\s+(.*)$`)
)

// ParseWorkflowDirective reads a leading directive from message. Messages without
// one come back as DirectiveNone with the text unchanged.
func ParseWorkflowDirective(message string) WorkflowDirective {
	trimmed := strings.TrimSpace(message)

	if listFlowsPattern.MatchString(trimmed) {
		return WorkflowDirective{Type: DirectiveListFlows}
	}
	if m := setWorkflowPattern.FindStringSubmatch(trimmed); m != nil {
		return WorkflowDirective{Type: DirectiveSetWorkflow, Target: strings.ToLower(m[1])}
	}
	if m := workflowNamePattern.FindStringSubmatch(message); m != nil {
		return WorkflowDirective{Type: DirectiveWorkflowName, Target: strings.ToLower(m[1]), Message: strings.TrimSpace(m[2])}
	}
	if m := flowIDPattern.FindStringSubmatch(message); m != nil {
		return WorkflowDirective{Type: DirectiveFlowID, Target: m[1], Message: strings.TrimSpace(m[2])}
	}

	return WorkflowDirective{Type: DirectiveNone, Message: message}
}

func formatFlowList(flows []workflow.Flow) string {
	if len(flows) == 0 {
		return "No workflows available."
	}

	var b strings.Builder
	b.WriteString("Available workflows:\n\n")
	for _, f := range flows {
		fmt.Fprintf(&b, "- %s (key: `%s`, id: `%s`)", f.Name, f.Key, f.ID)
		if f.Description != "" {
			b.WriteString(": " + f.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nUsage:\n")
	b.WriteString("- `@workflow:<name> <message>` sends one message to a workflow\n")
	b.WriteString("- `@flow:<id> <message>` sends one message to a flow id\n")
	b.WriteString("- `@set-workflow:<name>` makes a workflow the session default\n")
	return b.String()
}

func flowKeys(flows []workflow.Flow) string {
	keys := make([]string, 0, len(flows))
	for _, f := range flows {
		keys = append(keys, f.Key)
	}
	return strings.Join(keys, ", ")
}
