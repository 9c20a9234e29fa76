package api

import (
	"fmt"
	"strings"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxInputItems       int
	MaxInstructionsSize int
	MaxEstimatedSize    int
	MaxTools            int
	MaxTopLogprobs      int
	MaxOutputTokensCap  int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxInputItems:       1000,
		MaxInstructionsSize: 100 * 1024,       // 100KiB
		MaxEstimatedSize:    5 * 1024 * 1024,  // 5MiB
		MaxTools:            128,
		MaxTopLogprobs:      20,
		MaxOutputTokensCap:  100000,
	}
}

// ValidateRequest checks a CreateResponseRequest for validity. It returns an
// *APIError describing the first validation failure, or nil if the request is valid.
//
// The proxy is stateless: previous_response_id is always rejected, since
// there is no store to resolve it against.
func ValidateRequest(req *CreateResponseRequest, cfg ValidationConfig) *APIError {
	if req.Model == "" {
		return NewInvalidRequestError("model", "model is required")
	}

	if !req.Input.IsSet {
		return NewInvalidRequestError("input", "input is required")
	}
	if req.Input.Items != nil && len(req.Input.Items) == 0 {
		return NewInvalidRequestError("input", "input must contain at least one item")
	}

	if cfg.MaxInputItems > 0 && len(req.Input.Items) > cfg.MaxInputItems {
		return NewInvalidRequestError("input",
			fmt.Sprintf("input exceeds maximum of %d items", cfg.MaxInputItems))
	}

	if cfg.MaxInstructionsSize > 0 && len(req.Instructions) > cfg.MaxInstructionsSize {
		return NewInvalidRequestError("instructions",
			fmt.Sprintf("instructions exceeds maximum size of %d bytes", cfg.MaxInstructionsSize))
	}

	if cfg.MaxEstimatedSize > 0 {
		if size := EstimateRequestSize(req); size > cfg.MaxEstimatedSize {
			return NewInvalidRequestError("input",
				fmt.Sprintf("request exceeds maximum estimated size of %d bytes", cfg.MaxEstimatedSize))
		}
	}

	if cfg.MaxTools > 0 && len(req.Tools) > cfg.MaxTools {
		return NewInvalidRequestError("tools",
			fmt.Sprintf("tools exceeds maximum of %d", cfg.MaxTools))
	}

	if req.PreviousResponseID != "" {
		return NewInvalidRequestError("previous_response_id",
			"previous_response_id is not supported: this proxy is stateless")
	}

	if req.MaxOutputTokens != nil {
		if *req.MaxOutputTokens < 1 {
			return NewInvalidRequestError("max_output_tokens", "max_output_tokens must be at least 1")
		}
		if cfg.MaxOutputTokensCap > 0 && *req.MaxOutputTokens > cfg.MaxOutputTokensCap {
			return NewInvalidRequestError("max_output_tokens",
				fmt.Sprintf("max_output_tokens exceeds maximum of %d", cfg.MaxOutputTokensCap))
		}
	}

	if req.Temperature != nil {
		if *req.Temperature < 0.0 || *req.Temperature > 2.0 {
			return NewInvalidRequestError("temperature", "temperature must be between 0.0 and 2.0")
		}
	}

	if req.TopP != nil {
		if *req.TopP < 0.0 || *req.TopP > 1.0 {
			return NewInvalidRequestError("top_p", "top_p must be between 0.0 and 1.0")
		}
	}

	if req.TopLogprobs != nil {
		if *req.TopLogprobs < 0 || (cfg.MaxTopLogprobs > 0 && *req.TopLogprobs > cfg.MaxTopLogprobs) {
			return NewInvalidRequestError("top_logprobs",
				fmt.Sprintf("top_logprobs must be between 0 and %d", cfg.MaxTopLogprobs))
		}
	}

	if req.Truncation != "" && req.Truncation != "auto" && req.Truncation != "disabled" {
		return NewInvalidRequestError("truncation", "truncation must be 'auto' or 'disabled'")
	}

	if req.ToolChoice != nil && req.ToolChoice.Function != nil {
		name := req.ToolChoice.Function.Name
		found := false
		for _, tool := range req.Tools {
			if tool.Name == name {
				found = true
				break
			}
		}
		if !found {
			return NewInvalidRequestError("tool_choice",
				fmt.Sprintf("tool_choice references unknown tool %q", name))
		}
	}

	if req.Input.Items != nil {
		for i, item := range req.Input.Items {
			if err := ValidateItem(&item); err != nil {
				err.Param = fmt.Sprintf("input[%d].%s", i, err.Param)
				return err
			}
		}
	}

	return nil
}

// EstimateRequestSize returns a rough byte-size estimate of the request,
// summing instructions and the textual content of every input item. It is
// a cheap pre-check, not an exact marshalled-size count.
func EstimateRequestSize(req *CreateResponseRequest) int {
	size := len(req.Instructions) + len(req.Model)
	if req.Input.String != "" {
		size += len(req.Input.String)
	}
	for _, item := range req.Input.Items {
		size += estimateItemSize(item)
	}
	return size
}

func estimateItemSize(item Item) int {
	size := len(item.ID) + len(item.Type)
	if item.Message != nil {
		for _, part := range item.Message.Content {
			size += len(part.Text) + len(part.URL) + len(part.Data)
		}
		for _, part := range item.Message.Output {
			size += len(part.Text)
		}
	}
	if item.FunctionCall != nil {
		size += len(item.FunctionCall.Name) + len(item.FunctionCall.Arguments)
	}
	if item.FunctionCallOutput != nil {
		size += len(item.FunctionCallOutput.Output)
	}
	if item.Reasoning != nil {
		size += len(item.Reasoning.Content) + len(item.Reasoning.EncryptedContent)
	}
	return size
}

// ValidateItem checks an Item for structural validity.
func ValidateItem(item *Item) *APIError {
	if item.ID != "" && !ValidateItemID(item.ID) {
		return NewInvalidRequestError("id", "invalid item ID format")
	}

	if item.Type == "" {
		return NewInvalidRequestError("type", "item type is required")
	}

	if !isStandardItemType(item.Type) && !IsExtensionType(item.Type) {
		return NewInvalidRequestError("type",
			fmt.Sprintf("invalid item type %q: must be a standard type or use provider:type format", item.Type))
	}

	if IsExtensionType(item.Type) {
		if item.Extension == nil {
			return NewInvalidRequestError("extension", "extension items must have extension data")
		}
		return nil
	}

	count := 0
	if item.Message != nil {
		count++
	}
	if item.FunctionCall != nil {
		count++
	}
	if item.FunctionCallOutput != nil {
		count++
	}
	if item.Reasoning != nil {
		count++
	}
	if item.ItemReference != nil {
		count++
	}

	if count != 1 {
		return NewInvalidRequestError("type",
			"exactly one type-specific field must be populated")
	}

	switch item.Type {
	case ItemTypeMessage:
		if item.Message == nil {
			return NewInvalidRequestError("message", "message field required for message type")
		}
	case ItemTypeFunctionCall:
		if item.FunctionCall == nil {
			return NewInvalidRequestError("function_call", "function_call field required for function_call type")
		}
	case ItemTypeFunctionCallOutput:
		if item.FunctionCallOutput == nil {
			return NewInvalidRequestError("function_call_output", "function_call_output field required for function_call_output type")
		}
	case ItemTypeReasoning:
		if item.Reasoning == nil {
			return NewInvalidRequestError("reasoning", "reasoning field required for reasoning type")
		}
	case ItemTypeItemReference:
		if item.ItemReference == nil {
			return NewInvalidRequestError("item_reference", "item_reference field required for item_reference type")
		}
	}

	return nil
}

func isStandardItemType(t ItemType) bool {
	switch t {
	case ItemTypeMessage, ItemTypeFunctionCall, ItemTypeFunctionCallOutput, ItemTypeReasoning, ItemTypeItemReference:
		return true
	}
	return false
}

// ValidateExtensionType checks whether the given type string is a valid extension
// type (matches "provider:type" pattern with non-empty segments).
func ValidateExtensionType(t string) bool {
	parts := strings.SplitN(t, ":", 2)
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}
