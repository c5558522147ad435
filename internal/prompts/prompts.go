// Package prompts holds the assistant's persona text.
package prompts

// DefaultSystem is the fixed system instruction applied to every completion
// call unless overridden in config. Keeping it stable across calls keeps the
// assistant's behavior consistent for a deployment.
const DefaultSystem = `You are a helpful WhatsApp assistant.
Be concise and friendly in your responses.
Use the available tools when needed to help users.`

// Fallback is the user-visible reply when the completion call fails.
// Error detail is logged, never sent to the end user.
const Fallback = "Sorry, I encountered an error processing your message. Please try again."
