// Package empty provides empty state messages for TUI components.
package empty

// Message represents an empty state message with optional hints.
type Message struct {
	Title string
	Body  string
	Hints []string
}

// NoRecords is shown by a list that loaded and found nothing.
func NoRecords(feature string) Message {
	return Message{
		Title: "No records yet",
		Body:  feature + " has no records.",
		Hints: []string{"n  create a new one", "r  refresh"},
	}
}

// NoMatches is shown when a search or status filter matched nothing.
func NoMatches(search, status string) Message {
	msg := Message{Title: "No matching records"}
	switch {
	case search != "" && status != "":
		msg.Body = "Nothing matches \"" + search + "\" with status " + status + "."
	case search != "":
		msg.Body = "Nothing matches \"" + search + "\"."
	case status != "":
		msg.Body = "Nothing has status " + status + "."
	}
	msg.Hints = []string{"/  change the search", "s  cycle the status filter"}
	return msg
}

// NotAvailable is shown for menu destinations without a terminal view.
func NotAvailable(title string) Message {
	return Message{
		Title: title,
		Body:  "This page is not available in the terminal yet.",
		Hints: []string{"Pick another item from the menu"},
	}
}

// LoadFailed is shown when the first page of a list failed.
func LoadFailed(err error) Message {
	return Message{
		Title: "Could not load records",
		Body:  err.Error(),
		Hints: []string{"r  retry"},
	}
}
