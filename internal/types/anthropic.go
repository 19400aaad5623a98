package types

// AnthropicVersionVertex is the API version Vertex expects in the request
// body instead of the anthropic-version header.
const AnthropicVersionVertex = "vertex-2023-10-16"

// AnthropicRequest is the Anthropic-on-Vertex messages body. The model never
// appears here; Vertex takes it from the URL path.
type AnthropicRequest struct {
	AnthropicVersion string               `json:"anthropic_version"`
	Messages         []AnthropicMessage   `json:"messages"`
	System           string               `json:"system,omitempty"`
	MaxTokens        int                  `json:"max_tokens"`
	Temperature      *float64             `json:"temperature,omitempty"`
	StopSequences    []string             `json:"stop_sequences,omitempty"`
	Stream           bool                 `json:"stream,omitempty"`
	Tools            []AnthropicTool      `json:"tools,omitempty"`
	ToolChoice       *AnthropicToolChoice `json:"tool_choice,omitempty"`
}

// AnthropicMessage is one conversation turn. Content is either a plain string
// or a list of content blocks.
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// AnthropicContentBlock is a typed content block. Only the fields relevant to
// the block's Type are populated.
type AnthropicContentBlock struct {
	Type      string                `json:"type"`
	Text      string                `json:"text,omitempty"`
	Source    *AnthropicImageSource `json:"source,omitempty"`
	ID        string                `json:"id,omitempty"`
	Name      string                `json:"name,omitempty"`
	Input     map[string]any        `json:"input,omitempty"`
	ToolUseID string                `json:"tool_use_id,omitempty"`
	Content   any                   `json:"content,omitempty"`
}

// AnthropicImageSource is an image payload, either inline base64 or a URL
// reference.
type AnthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// AnthropicTool is the custom-tool definition shape.
type AnthropicTool struct {
	Type        string         `json:"type,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// AnthropicToolChoice selects how the model may use tools.
type AnthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// AnthropicResponse is the non-streaming messages response.
type AnthropicResponse struct {
	ID           string                  `json:"id"`
	Type         string                  `json:"type"`
	Role         string                  `json:"role"`
	Model        string                  `json:"model,omitempty"`
	Content      []AnthropicContentBlock `json:"content"`
	StopReason   *string                 `json:"stop_reason"`
	StopSequence *string                 `json:"stop_sequence"`
	Usage        AnthropicUsage          `json:"usage"`
}

// AnthropicUsage is the upstream token accounting block.
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
