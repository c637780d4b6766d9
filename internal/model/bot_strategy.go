package model

// Bot strategy constants
const (
	BotStrategyRandom  = "random"
	BotStrategyMinimax = "minimax"
)

// DefaultBotStrategy is used when a bot game is started without one
const DefaultBotStrategy = BotStrategyMinimax

// BotStrategyDisplayName returns a human-readable label for a strategy
func BotStrategyDisplayName(strategy string) string {
	switch strategy {
	case BotStrategyRandom:
		return "Random"
	case BotStrategyMinimax:
		return "Minimax"
	default:
		return strategy
	}
}

// BotLogin returns the login a bot plays under
func BotLogin(strategy string) string {
	return "bot-" + strategy
}

// ValidBotStrategies returns all valid bot strategy names
func ValidBotStrategies() []string {
	return []string{BotStrategyRandom, BotStrategyMinimax}
}
