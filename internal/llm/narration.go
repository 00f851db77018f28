// Match recap narration: turns a finished game's outcome and closing log
// into a short piece of prose for the archive.
package llm

import (
	"context"
	"fmt"
	"strings"
)

const recapSystemPrompt = `You are the ship's log of a space station where a crew has just finished a round of a social deduction game against hidden saboteurs.

Narrate the round in 2-3 sentences of dry, in-universe log prose. Name who won and why. Do not invent events that are not in the log.`

// NarrateOutcome writes a recap using the shared key.
// Returns ErrDisabled when the client is not configured.
func NarrateOutcome(ctx context.Context, client *Client, winner, reason string, log []string) (string, error) {
	if !client.Enabled() {
		return "", ErrDisabled
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Result: %s win. %s\n\nClosing log:\n", winner, reason)
	for _, line := range log {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	return client.Complete(ctx, "", recapSystemPrompt, b.String())
}
