package service

import (
	"testing"

	"flowchat-be/pkg/workflow"

	"github.com/stretchr/testify/assert"
)

func TestParseWorkflowDirective(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    WorkflowDirective
	}{
		{name: "plain message", message: "Hello there", want: WorkflowDirective{Message: "Hello there"}},
		{name: "flow id", message: "@flow:abc-123 Hello there", want: WorkflowDirective{Type: DirectiveFlowID, Target: "abc-123", Message: "Hello there"}},
		{name: "flow id keeps case", message: "@FLOW:AbC Hi", want: WorkflowDirective{Type: DirectiveFlowID, Target: "AbC", Message: "Hi"}},
		{name: "flow id multiline", message: "@flow:f1 line one\nline two", want: WorkflowDirective{Type: DirectiveFlowID, Target: "f1", Message: "line one\nline two"}},
		{name: "flow id without text", message: "@flow:f1", want: WorkflowDirective{Message: "@flow:f1"}},
		{name: "flow id with blank text", message: "@flow:f1   ", want: WorkflowDirective{Type: DirectiveFlowID, Target: "f1", Message: ""}},
		{name: "workflow name", message: "@workflow:Basic-Prompting  summarize this ", want: WorkflowDirective{Type: DirectiveWorkflowName, Target: "basic-prompting", Message: "summarize this"}},
		{name: "list", message: "@workflows", want: WorkflowDirective{Type: DirectiveListFlows}},
		{name: "list singular", message: "  @Workflow  ", want: WorkflowDirective{Type: DirectiveListFlows}},
		{name: "set workflow", message: "@set-workflow:RAG", want: WorkflowDirective{Type: DirectiveSetWorkflow, Target: "rag"}},
		{name: "set workflow with trailing text is plain", message: "@set-workflow:rag now please", want: WorkflowDirective{Message: "@set-workflow:rag now please"}},
		{name: "directive not at start", message: "please use @flow:x hi", want: WorkflowDirective{Message: "please use @flow:x hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseWorkflowDirective(tt.message))
		})
	}
}

func TestWorkflowDirective_IsCommand(t *testing.T) {
	assert.True(t, WorkflowDirective{Type: DirectiveListFlows}.IsCommand())
	assert.True(t, WorkflowDirective{Type: DirectiveSetWorkflow}.IsCommand())
	assert.False(t, WorkflowDirective{Type: DirectiveFlowID}.IsCommand())
	assert.False(t, WorkflowDirective{Type: DirectiveWorkflowName}.IsCommand())
	assert.False(t, WorkflowDirective{}.IsCommand())
}

func TestFormatFlowList(t *testing.T) {
	assert.Equal(t, "No workflows available.", formatFlowList(nil))

	out := formatFlowList([]workflow.Flow{{Key: "rag", ID: "f2", Name: "RAG", Description: "retrieval"}})
	assert.Contains(t, out, "- RAG (key: `rag`, id: `f2`): retrieval")
	assert.Contains(t, out, "@set-workflow:<name>")
}
