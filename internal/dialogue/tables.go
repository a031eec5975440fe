package dialogue

import "github.com/socratic-labs/dialogue/internal/domain"

// OpeningPrompt seeds the history of every new session.
const OpeningPrompt = "Welcome to our dialogue on justice. To begin, could you share your initial thoughts on what justice means to you?"

// SocraticStrategy is reported with every reasoning trace.
const SocraticStrategy = "Challenging underlying assumptions to expose contradictions in reasoning."

// SummaryText is returned by every summary request.
const SummaryText = "Learning summary generated."

// topicResponses maps a topic to its pool of tutor replies.
var topicResponses = map[string][]string{
	domain.DefaultTopic: {
		"That's an interesting perspective. Can you explain why you believe justice should be defined that way?",
		"I see. But consider this: if justice is about giving people what they deserve, how do we determine what someone deserves?",
		"That definition seems to rely on certain assumptions about fairness. What if those assumptions were challenged?",
		"You've mentioned fairness. But is fairness always just? Consider situations where treating everyone equally leads to unjust outcomes.",
		"Interesting. Now, let me ask: if justice is about following rules, what makes a rule just in the first place?",
		"You seem to be equating justice with legality. But can laws themselves be unjust? Think about historical examples.",
	},
}

// fallacyLabels is the pool reasoning traces draw their pattern from.
var fallacyLabels = []string{
	"Unstated assumption: Equating justice with legality",
	"Potential circular reasoning: Using justice to define fairness and fairness to define justice",
	"Overgeneralization: Applying a specific case to all situations",
	"False dichotomy: Presenting only two options when more exist",
	"Appeal to emotion: Relying on emotional response rather than logical reasoning",
}

// ResponsesFor returns the reply pool for topic, falling back to the
// default topic. The bool reports whether topic itself was known.
func ResponsesFor(topic string) ([]string, bool) {
	if pool, ok := topicResponses[topic]; ok {
		return pool, true
	}
	return topicResponses[domain.DefaultTopic], false
}

// FallacyLabels returns a copy of the fallacy pool.
func FallacyLabels() []string {
	return append([]string(nil), fallacyLabels...)
}
