package model

type Task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// EmbedText is the text a task's embedding is computed from. Title and
// description are combined so that short titles still rank on body content.
func (t *Task) EmbedText() string {
	if t.Description == "" {
		return t.Title
	}
	return t.Title + ". " + t.Description
}
