package engine

import "github.com/quillmail/quill/internal/domain"

// truncateToBudget drops the oldest messages until the total content
// size fits the budget. The system prompt is carried separately in the
// request and is never subject to truncation here. The newest message
// is always kept even if it alone exceeds the budget.
func truncateToBudget(history []domain.Message, budget int) []domain.Message {
	if budget <= 0 || len(history) == 0 {
		return history
	}

	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		size := len(history[i].Content) + len(history[i].Reasoning)
		if total+size > budget && start < len(history) {
			break
		}
		total += size
		start = i
	}
	return history[start:]
}
