package chat

import "github.com/klytics/invoicechat/internal/dataset"

// Preamble introduces the data dictionary in every agent input.
const Preamble = "Refer to the following data dictionary for context:"

// BuildInput returns the text sent to the agent for question q: the preamble,
// the data dictionary, a blank line, then q verbatim.
func BuildInput(q string) string {
	return Preamble + "\n\n" + dataset.DataDictionary + "\n\n" + q
}
