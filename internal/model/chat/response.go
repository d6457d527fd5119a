package chat

// Metadata describes a successful upstream answer.
type Metadata struct {
	ResponseTime   string `json:"response_time"`
	Timestamp      string `json:"timestamp"`
	Model          string `json:"model"`
	CharacterCount int    `json:"character_count"`
	WordCount      int    `json:"word_count"`
}

// Result is the terminal value returned to the caller. On success Response
// and Metadata are populated; on failure only Error is. Prompt echoes the
// question back on every answered request and is filled in by the HTTP layer.
type Result struct {
	Success  bool      `json:"success"`
	Response string    `json:"response,omitempty"`
	Prompt   string    `json:"prompt,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
	Error    string    `json:"error,omitempty"`
}
