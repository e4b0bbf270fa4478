package eachlabs

import (
	"context"
	"maps"
)

// TaskBuilder provides a fluent API for triggering a flow:
//
//	id, err := eachlabs.Flow("flow-id").
//	    Param("prompt", "a red fox").
//	    Param("steps", 30).
//	    Webhook("https://example.com/hook").
//	    Start(ctx, client, apiKey)
type TaskBuilder struct {
	flowID  string
	params  Parameters
	webhook string
}

// Flow creates a builder for flowID.
func Flow(flowID string) *TaskBuilder {
	return &TaskBuilder{
		flowID: flowID,
		params: make(Parameters),
	}
}

// FlowID returns the flow the builder triggers.
func (b *TaskBuilder) FlowID() string {
	return b.flowID
}

// Param sets one parameter.
func (b *TaskBuilder) Param(key string, value any) *TaskBuilder {
	b.params[key] = value
	return b
}

// Params merges params into the builder's parameters.
func (b *TaskBuilder) Params(params Parameters) *TaskBuilder {
	maps.Copy(b.params, params)
	return b
}

// Webhook sets the webhook URL sent with single starts. Bulk starts do not
// carry one.
func (b *TaskBuilder) Webhook(u string) *TaskBuilder {
	b.webhook = u
	return b
}

// Parameters returns a copy of the collected parameters.
func (b *TaskBuilder) Parameters() Parameters {
	return maps.Clone(b.params)
}

// Endpoint returns the StartTask descriptor for apiKey.
func (b *TaskBuilder) Endpoint(apiKey string) StartTask {
	return StartTask{
		FlowID:     b.flowID,
		Parameters: b.Parameters(),
		WebhookURL: b.webhook,
		APIKey:     apiKey,
	}
}

// Start triggers one execution through c.
func (b *TaskBuilder) Start(ctx context.Context, c *Client, apiKey string) (string, error) {
	return c.StartTask(ctx, apiKey, b.flowID, b.Parameters(), b.webhook)
}

// StartBulk triggers count executions through c.
func (b *TaskBuilder) StartBulk(ctx context.Context, c *Client, apiKey string, count int) ([]string, error) {
	return c.StartBulkTask(ctx, apiKey, b.flowID, b.Parameters(), count)
}
